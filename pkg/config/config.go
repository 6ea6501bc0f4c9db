// Package config loads texbake bake configuration files.
//
// A configuration is a JSON, TOML or YAML file (chosen by extension) with
// the keys below. Every key can be overridden from the environment with a
// TEXBAKE_ prefix and dots replaced by underscores, for example
// TEXBAKE_TEXTURE_RESOLUTION=2048 or TEXBAKE_SETTINGS_USE_GPU=true.
//
//	{
//	  "scene_file": "rock.json",
//	  "objects": ["Rock"],
//	  "output_name": "rock",
//	  "texture_resolution": 1024,
//	  "output_directory": "out",
//	  "settings": {"bake_margin": 16, "bake_separate_per_object": true},
//	  "texture_maps": {"albedo": true, "emission": false}
//	}
//
// Relative scene_file and output_directory values are resolved against the
// directory holding the configuration file.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/matzehuels/texbake/pkg/bake"
	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host"
	"github.com/matzehuels/texbake/pkg/pipeline"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "TEXBAKE"

// Settings holds the bake behaviour switches.
type Settings struct {
	BakeMargin                      int    `mapstructure:"bake_margin"`
	UseGPU                          bool   `mapstructure:"use_gpu"`
	BakeSeparatePerObject           bool   `mapstructure:"bake_separate_per_object"`
	ExportMetallicRoughnessPacked   bool   `mapstructure:"export_metallic_roughness_packed"`
	SaveIndividualMetallicRoughness bool   `mapstructure:"save_individual_metallic_roughness"`
	ExportScene                     bool   `mapstructure:"export_scene"`
	ExportFormat                    string `mapstructure:"export_format"`
	AOSelection                     string `mapstructure:"ao_selection"`
}

// TextureMaps enables individual maps.
type TextureMaps struct {
	Albedo           bool `mapstructure:"albedo"`
	Normal           bool `mapstructure:"normal"`
	Roughness        bool `mapstructure:"roughness"`
	Metallic         bool `mapstructure:"metallic"`
	AmbientOcclusion bool `mapstructure:"ambient_occlusion"`
	Emission         bool `mapstructure:"emission"`
}

// Config is a loaded bake configuration.
type Config struct {
	SceneFile   string      `mapstructure:"scene_file"`
	Objects     []string    `mapstructure:"objects"`
	OutputName  string      `mapstructure:"output_name"`
	Resolution  int         `mapstructure:"texture_resolution"`
	OutputDir   string      `mapstructure:"output_directory"`
	Settings    Settings    `mapstructure:"settings"`
	TextureMaps TextureMaps `mapstructure:"texture_maps"`

	// BlendFile is the legacy name of SceneFile, used when SceneFile is unset.
	BlendFile string `mapstructure:"blend_file"`

	path string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scene_file", "")
	v.SetDefault("blend_file", "")
	v.SetDefault("objects", []string{})
	v.SetDefault("output_name", "")
	v.SetDefault("texture_resolution", pipeline.DefaultResolution)
	v.SetDefault("output_directory", "")

	v.SetDefault("settings.bake_margin", pipeline.DefaultMargin)
	v.SetDefault("settings.use_gpu", false)
	v.SetDefault("settings.bake_separate_per_object", true)
	v.SetDefault("settings.export_metallic_roughness_packed", true)
	v.SetDefault("settings.save_individual_metallic_roughness", false)
	v.SetDefault("settings.export_scene", false)
	v.SetDefault("settings.export_format", pipeline.DefaultExportFormat)
	v.SetDefault("settings.ao_selection", "")

	v.SetDefault("texture_maps.albedo", true)
	v.SetDefault("texture_maps.normal", true)
	v.SetDefault("texture_maps.roughness", true)
	v.SetDefault("texture_maps.metallic", true)
	v.SetDefault("texture_maps.ambient_occlusion", true)
	v.SetDefault("texture_maps.emission", false)
}

// Load reads the configuration at path, applying defaults and TEXBAKE_*
// environment overrides.
func Load(path string) (*Config, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode config %s", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "config path %s", path)
	}
	cfg.path = abs
	if cfg.SceneFile == "" {
		cfg.SceneFile = cfg.BlendFile
	}
	cfg.SceneFile = cfg.resolve(cfg.SceneFile)
	cfg.OutputDir = cfg.resolve(cfg.OutputDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// Path returns the absolute path of the configuration file.
func (c *Config) Path() string { return c.path }

// Dir returns the directory relative paths are resolved against.
func (c *Config) Dir() string { return filepath.Dir(c.path) }

// Validate checks that required keys are present.
func (c *Config) Validate() error {
	var missing []string
	if c.SceneFile == "" {
		missing = append(missing, "scene_file")
	}
	if len(c.Objects) == 0 {
		missing = append(missing, "objects")
	}
	if c.OutputName == "" {
		missing = append(missing, "output_name")
	}
	if c.OutputDir == "" {
		missing = append(missing, "output_directory")
	}
	if len(missing) > 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "missing required keys: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Maps returns the enabled maps in bake order. The result is never nil.
func (c *Config) Maps() []bake.MapType {
	maps := []bake.MapType{}
	for _, e := range []struct {
		on bool
		m  bake.MapType
	}{
		{c.TextureMaps.Albedo, bake.Albedo},
		{c.TextureMaps.Normal, bake.Normal},
		{c.TextureMaps.Roughness, bake.Roughness},
		{c.TextureMaps.Metallic, bake.Metallic},
		{c.TextureMaps.AmbientOcclusion, bake.AO},
		{c.TextureMaps.Emission, bake.Emission},
	} {
		if e.on {
			maps = append(maps, e.m)
		}
	}
	return maps
}

// Options converts the configuration into validated pipeline options.
func (c *Config) Options() (pipeline.Options, error) {
	opts := pipeline.Options{
		SceneFile:             c.SceneFile,
		Objects:               c.Objects,
		OutputName:            c.OutputName,
		Resolution:            c.Resolution,
		OutputDir:             c.OutputDir,
		Maps:                  c.Maps(),
		Margin:                c.Settings.BakeMargin,
		UseGPU:                c.Settings.UseGPU,
		Separate:              c.Settings.BakeSeparatePerObject,
		PackMetallicRoughness: c.Settings.ExportMetallicRoughnessPacked,
		SaveIndividualMR:      c.Settings.SaveIndividualMetallicRoughness,
		ExportScene:           c.Settings.ExportScene,
		ExportFormat:          c.Settings.ExportFormat,
		AOPolicy:              host.SelectionPolicy(c.Settings.AOSelection),
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}
