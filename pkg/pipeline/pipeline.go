// Package pipeline provides the bake orchestrator for texbake.
//
// A run takes an open scene and a set of configured objects through a
// fixed, fail-fast sequence of stages:
//
//  1. Validate: resolve objects and their children, require materials,
//     repair missing UV maps
//  2. Create: allocate one bake target per enabled map and scope
//  3. Bake: standard maps through the material-graph rewriter
//  4. AO: ambient occlusion with the group or self-only selection policy
//  5. Persist: write targets under the output directory
//  6. Pack: composite roughness and metallic into one texture
//  7. Assemble and apply: build the baked material and replace slots
//  8. Export and manifest
//
// In separate mode stages 2 to 7 run once per object, scoped by the object
// name; in combined mode they run once for all objects with an empty scope.
//
// # Usage
//
//	runner := pipeline.NewRunner(soft.New(), logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    SceneFile:  "rock.json",
//	    Objects:    []string{"Rock"},
//	    OutputName: "rock",
//	    OutputDir:  "out",
//	})
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/texbake/pkg/bake"
	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host"
	"github.com/matzehuels/texbake/pkg/manifest"
	"github.com/matzehuels/texbake/pkg/shader"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Config
// =============================================================================

const (
	// DefaultResolution is the square texture resolution in pixels.
	DefaultResolution = 1024

	// DefaultMargin is the bake margin in pixels used by config files that
	// leave it unset. A zero Margin in Options disables dilation.
	DefaultMargin = 16

	// DefaultExportFormat is the scene export format.
	DefaultExportFormat = "json"
)

// DefaultMaps are the maps baked when none are configured. Emission is
// opt-in.
var DefaultMaps = []bake.MapType{bake.Albedo, bake.Normal, bake.Roughness, bake.Metallic, bake.AO}

// Stage names reported to hooks and logs.
const (
	StageValidate = "validate"
	StageCreate   = "create"
	StageBake     = "bake"
	StageAO       = "ao"
	StagePersist  = "persist"
	StagePack     = "pack"
	StageAssemble = "assemble"
	StageApply    = "apply"
	StageExport   = "export"
	StageManifest = "manifest"
)

// =============================================================================
// Options - Bake Configuration
// =============================================================================

// Options contains all configuration for one bake run.
type Options struct {
	// SceneFile is opened on the host before validation. When empty the
	// host's current scene is used.
	SceneFile  string   `json:"scene_file,omitempty"`
	Objects    []string `json:"objects"`
	OutputName string   `json:"output_name"`
	Resolution int      `json:"texture_resolution,omitempty"`
	OutputDir  string   `json:"output_directory"`

	// Maps lists the enabled maps. Packing is controlled separately.
	Maps []bake.MapType `json:"maps,omitempty"`

	Margin                int                  `json:"bake_margin,omitempty"`
	UseGPU                bool                 `json:"use_gpu,omitempty"`
	Separate              bool                 `json:"bake_separate_per_object,omitempty"`
	PackMetallicRoughness bool                 `json:"export_metallic_roughness_packed,omitempty"`
	SaveIndividualMR      bool                 `json:"save_individual_metallic_roughness,omitempty"`
	ExportScene           bool                 `json:"export_scene,omitempty"`
	ExportFormat          string               `json:"export_format,omitempty"`
	AOPolicy              host.SelectionPolicy `json:"ao_selection,omitempty"` // empty follows the mode

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a bake run.
type Result struct {
	// RunID identifies the run in logs, the manifest and the history.
	RunID string

	// Mode is "separate" or "combined".
	Mode string

	// Objects are the mesh objects that were baked, in selection order.
	Objects []host.ObjectID

	// UVGenerated lists objects whose UV map was created by the run.
	UVGenerated []host.ObjectID

	// Targets are all bake targets in creation order, including packed ones.
	Targets []*bake.Target

	// Materials are the assembled materials, one per scope.
	Materials []*shader.Material

	// Files are the generated files relative to the output directory.
	Files []string

	ExportPath   string
	ManifestPath string

	Stats Stats
}

// Stats contains run statistics.
type Stats struct {
	Scopes       int
	BakeJobs     int
	SavedFiles   int
	ValidateTime time.Duration
	BakeTime     time.Duration
	TotalTime    time.Duration
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateMaps checks that every map can be baked directly and that none
// repeats. The packed map is produced by compositing, never by a bake.
func ValidateMaps(maps []bake.MapType) error {
	seen := make(map[bake.MapType]bool, len(maps))
	for _, m := range maps {
		if !slices.Contains(bake.BakeableMaps, m) {
			return errors.New(errors.ErrCodeInvalidConfig, "map %q cannot be baked", m)
		}
		if seen[m] {
			return errors.New(errors.ErrCodeInvalidConfig, "map %q listed twice", m)
		}
		seen[m] = true
	}
	return nil
}

// ValidateSelectionPolicy checks an AO selection override.
func ValidateSelectionPolicy(p host.SelectionPolicy) error {
	switch p {
	case "", host.SelfOnly, host.Group:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidConfig, "invalid ao selection %q (must be self or group)", p)
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()

	if len(o.Objects) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "at least one object is required")
	}
	for _, name := range o.Objects {
		if err := errors.ValidateObjectName(name); err != nil {
			return err
		}
	}
	if err := errors.ValidateOutputName(o.OutputName); err != nil {
		return err
	}
	if err := errors.ValidatePath(o.OutputDir); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "output directory")
	}
	if o.SceneFile != "" {
		if err := errors.ValidatePath(o.SceneFile); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "scene file")
		}
	}
	if err := errors.ValidateResolution(o.Resolution); err != nil {
		return err
	}
	if o.Margin < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "bake margin must not be negative, got %d", o.Margin)
	}
	if err := ValidateMaps(o.Maps); err != nil {
		return err
	}
	if err := ValidateSelectionPolicy(o.AOPolicy); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetDefaults fills zero values with defaults. Margin is left alone since
// zero is a valid margin.
func (o *Options) SetDefaults() {
	if o.Resolution == 0 {
		o.Resolution = DefaultResolution
	}
	if o.Maps == nil {
		o.Maps = slices.Clone(DefaultMaps)
	}
	if o.ExportFormat == "" {
		o.ExportFormat = DefaultExportFormat
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Enabled reports whether m is baked.
func (o *Options) Enabled(m bake.MapType) bool {
	return slices.Contains(o.Maps, m)
}

// Mode returns [manifest.ModeSeparate] or [manifest.ModeCombined].
func (o *Options) Mode() string {
	if o.Separate {
		return manifest.ModeSeparate
	}
	return manifest.ModeCombined
}

// AOSelection returns the policy used for the AO pass: the override when
// set, otherwise Group in combined mode and SelfOnly in separate mode.
func (o *Options) AOSelection() host.SelectionPolicy {
	if o.AOPolicy != "" {
		return o.AOPolicy
	}
	if o.Separate {
		return host.SelfOnly
	}
	return host.Group
}

// SavePolicy returns the registry save policy implied by the options.
func (o *Options) SavePolicy() bake.SavePolicy {
	return bake.SavePolicy{
		Packing:          o.PackMetallicRoughness && o.Enabled(bake.Roughness) && o.Enabled(bake.Metallic),
		SaveIndividualMR: o.SaveIndividualMR,
	}
}
