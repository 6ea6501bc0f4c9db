package bake

import (
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host"
)

// TexturesDir is the subdirectory of the output directory that receives
// persisted maps.
const TexturesDir = "textures"

// Key identifies a bake target. Scope is empty in combined mode and the
// object name in separate mode.
type Key struct {
	Map   MapType
	Scope string
}

// Target is a bake-target image registered under a key.
type Target struct {
	Key
	Image *host.Image
	Path  string

	persisted bool
}

// Persisted reports whether the target has been written to disk.
func (t *Target) Persisted() bool { return t.persisted }

// SavePolicy decides which targets are written individually.
type SavePolicy struct {
	// Packing is set when roughness and metallic are packed into one texture.
	Packing bool
	// SaveIndividualMR writes roughness and metallic even when packing.
	SaveIndividualMR bool
}

// ShouldSave reports whether m is persisted on its own.
func (p SavePolicy) ShouldSave(m MapType) bool {
	if m == Roughness || m == Metallic {
		return !p.Packing || p.SaveIndividualMR
	}
	return true
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	BaseName   string
	OutputDir  string
	Resolution int
	Policy     SavePolicy
}

// Registry allocates, looks up, and persists bake targets keyed uniformly
// by (map, scope).
type Registry struct {
	images  host.ImageHost
	cfg     RegistryConfig
	targets map[Key]*Target
	order   []Key
	logger  *log.Logger
}

// NewRegistry creates a registry backed by the host's image store.
func NewRegistry(images host.ImageHost, cfg RegistryConfig, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Registry{
		images:  images,
		cfg:     cfg,
		targets: make(map[Key]*Target),
		logger:  logger,
	}
}

// Create allocates a square target for (m, scope). A second Create with the
// same key replaces the earlier target.
func (r *Registry) Create(m MapType, scope string) (*Target, error) {
	if err := errors.ValidateResolution(r.cfg.Resolution); err != nil {
		return nil, err
	}
	name := ImageName(r.cfg.BaseName, scope, m)
	img, err := r.images.CreateImage(name, r.cfg.Resolution, r.cfg.Resolution, m.ColorSpace(), m.Float())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create image %s", name)
	}
	t := &Target{Key: Key{Map: m, Scope: scope}, Image: img}
	r.put(t)
	r.logger.Debug("created target", "image", name, "resolution", r.cfg.Resolution, "color_space", img.ColorSpace)
	return t, nil
}

func (r *Registry) put(t *Target) {
	if _, exists := r.targets[t.Key]; !exists {
		r.order = append(r.order, t.Key)
	}
	r.targets[t.Key] = t
}

// Get returns the target for (m, scope). A disabled map is simply absent.
func (r *Registry) Get(m MapType, scope string) (*Target, bool) {
	t, ok := r.targets[Key{Map: m, Scope: scope}]
	return t, ok
}

// Path returns the file path a target for (m, scope) is persisted to.
func (r *Registry) Path(m MapType, scope string) string {
	return filepath.Join(r.cfg.OutputDir, TexturesDir, FileName(r.cfg.BaseName, scope, m))
}

// Persist writes t per the save policy. saved is true only when this call
// wrote the file; persisting twice returns the first path without writing.
func (r *Registry) Persist(t *Target) (path string, saved bool, err error) {
	if t.persisted {
		return t.Path, false, nil
	}
	if !r.cfg.Policy.ShouldSave(t.Map) {
		r.logger.Debug("skipping individual save", "map", t.Map, "scope", t.Scope)
		return "", false, nil
	}
	path = r.Path(t.Map, t.Scope)
	if err := r.images.SaveImage(t.Image, path); err != nil {
		return "", false, errors.Wrap(errors.ErrCodeInternal, err, "save %s", path)
	}
	t.Path = path
	t.persisted = true
	return path, true, nil
}

// Register records an image the host already wrote, such as the packed
// texture, as a persisted target.
func (r *Registry) Register(m MapType, scope string, img *host.Image, path string) *Target {
	t := &Target{Key: Key{Map: m, Scope: scope}, Image: img, Path: path, persisted: true}
	r.put(t)
	return t
}

// Targets returns all targets in first-creation order.
func (r *Registry) Targets() []*Target {
	out := make([]*Target, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.targets[k])
	}
	return out
}

// Len returns the number of registered targets.
func (r *Registry) Len() int { return len(r.targets) }
