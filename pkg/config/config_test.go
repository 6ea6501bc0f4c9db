package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/texbake/pkg/bake"
	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host"
	"github.com/matzehuels/texbake/pkg/pipeline"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalJSON = `{
  "scene_file": "scenes/rock.json",
  "objects": ["Rock", "Pebble"],
  "output_name": "rock",
  "output_directory": "out"
}`

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "bake.json", minimalJSON)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(path)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"SceneFile", cfg.SceneFile, filepath.Join(dir, "scenes", "rock.json")},
		{"OutputDir", cfg.OutputDir, filepath.Join(dir, "out")},
		{"Resolution", cfg.Resolution, pipeline.DefaultResolution},
		{"BakeMargin", cfg.Settings.BakeMargin, pipeline.DefaultMargin},
		{"UseGPU", cfg.Settings.UseGPU, false},
		{"Separate", cfg.Settings.BakeSeparatePerObject, true},
		{"Packed", cfg.Settings.ExportMetallicRoughnessPacked, true},
		{"IndividualMR", cfg.Settings.SaveIndividualMetallicRoughness, false},
		{"ExportScene", cfg.Settings.ExportScene, false},
		{"ExportFormat", cfg.Settings.ExportFormat, "json"},
		{"Emission", cfg.TextureMaps.Emission, false},
		{"AO", cfg.TextureMaps.AmbientOcclusion, true},
		{"Path", cfg.Path(), path},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	want := []bake.MapType{bake.Albedo, bake.Normal, bake.Roughness, bake.Metallic, bake.AO}
	if !slices.Equal(cfg.Maps(), want) {
		t.Errorf("Maps() = %v, want %v", cfg.Maps(), want)
	}
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"toml", "bake.toml", `
scene_file = "/scenes/rock.json"
objects = ["Rock"]
output_name = "rock"
output_directory = "/out"
texture_resolution = 2048

[settings]
bake_margin = 8
bake_separate_per_object = false

[texture_maps]
emission = true
ambient_occlusion = false
`},
		{"yaml", "bake.yaml", `
scene_file: /scenes/rock.json
objects: [Rock]
output_name: rock
output_directory: /out
texture_resolution: 2048
settings:
  bake_margin: 8
  bake_separate_per_object: false
texture_maps:
  emission: true
  ambient_occlusion: false
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.file, tt.body))
			if err != nil {
				t.Fatal(err)
			}
			if cfg.SceneFile != "/scenes/rock.json" || cfg.OutputDir != "/out" {
				t.Errorf("absolute paths rewritten: %q, %q", cfg.SceneFile, cfg.OutputDir)
			}
			if cfg.Resolution != 2048 || cfg.Settings.BakeMargin != 8 || cfg.Settings.BakeSeparatePerObject {
				t.Errorf("values = %d/%d/%v", cfg.Resolution, cfg.Settings.BakeMargin, cfg.Settings.BakeSeparatePerObject)
			}
			want := []bake.MapType{bake.Albedo, bake.Normal, bake.Roughness, bake.Metallic, bake.Emission}
			if !slices.Equal(cfg.Maps(), want) {
				t.Errorf("Maps() = %v, want %v", cfg.Maps(), want)
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TEXBAKE_TEXTURE_RESOLUTION", "512")
	t.Setenv("TEXBAKE_SETTINGS_USE_GPU", "true")
	t.Setenv("TEXBAKE_SETTINGS_AO_SELECTION", "self")
	t.Setenv("TEXBAKE_TEXTURE_MAPS_NORMAL", "false")

	cfg, err := Load(writeConfig(t, "bake.json", minimalJSON))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Resolution != 512 {
		t.Errorf("Resolution = %d, want 512", cfg.Resolution)
	}
	if !cfg.Settings.UseGPU {
		t.Error("UseGPU not overridden")
	}
	if cfg.TextureMaps.Normal {
		t.Error("normal map not disabled")
	}

	opts, err := cfg.Options()
	if err != nil {
		t.Fatal(err)
	}
	if opts.AOPolicy != host.SelfOnly || opts.Resolution != 512 || !opts.UseGPU {
		t.Errorf("options = %+v", opts)
	}
}

func TestLoadLegacySceneKey(t *testing.T) {
	cfg, err := Load(writeConfig(t, "bake.json", `{
  "blend_file": "asteroid.blend",
  "objects": ["Donut"],
  "output_name": "nateroid",
  "output_directory": "."
}`))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(cfg.SceneFile) != "asteroid.blend" || !filepath.IsAbs(cfg.SceneFile) {
		t.Errorf("SceneFile = %q", cfg.SceneFile)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		code errors.Code
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") }, errors.ErrCodeFileNotFound},
		{"empty path", func(*testing.T) string { return "" }, errors.ErrCodeInvalidPath},
		{"malformed", func(t *testing.T) string { return writeConfig(t, "bake.json", `{"objects": [`) }, errors.ErrCodeInvalidConfig},
		{"missing keys", func(t *testing.T) string { return writeConfig(t, "bake.json", `{"objects": ["Rock"]}`) }, errors.ErrCodeInvalidConfig},
		{"unknown extension", func(t *testing.T) string { return writeConfig(t, "bake.conf9", "x") }, errors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.path(t)); !errors.Is(err, tt.code) {
				t.Errorf("Load() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestOptionsMargin(t *testing.T) {
	tests := []struct {
		name     string
		settings string
		want     int
	}{
		{"unset", ``, pipeline.DefaultMargin},
		{"explicit zero", `, "settings": {"bake_margin": 0}`, 0},
		{"explicit", `, "settings": {"bake_margin": 4}`, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"scene_file": "s.json", "objects": ["Rock"], "output_name": "rock", "output_directory": "out"` + tt.settings + `}`
			cfg, err := Load(writeConfig(t, "bake.json", body))
			if err != nil {
				t.Fatal(err)
			}
			opts, err := cfg.Options()
			if err != nil {
				t.Fatal(err)
			}
			if opts.Margin != tt.want {
				t.Errorf("margin = %d, want %d", opts.Margin, tt.want)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	cfg, err := Load(writeConfig(t, "bake.json", minimalJSON))
	if err != nil {
		t.Fatal(err)
	}
	opts, err := cfg.Options()
	if err != nil {
		t.Fatal(err)
	}
	if !opts.Separate || !opts.PackMetallicRoughness || opts.Margin != 16 {
		t.Errorf("options = %+v", opts)
	}
	if !slices.Equal(opts.Objects, []string{"Rock", "Pebble"}) {
		t.Errorf("objects = %v", opts.Objects)
	}

	cfg.TextureMaps = TextureMaps{}
	opts, err = cfg.Options()
	if err != nil {
		t.Fatal(err)
	}
	if len(opts.Maps) != 0 {
		t.Errorf("all maps disabled but options carry %v", opts.Maps)
	}

	cfg.Settings.AOSelection = "world"
	if _, err := cfg.Options(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("invalid ao selection error = %v", err)
	}
}
