// Package soft is an in-process software implementation of [host.Host].
//
// Scenes are JSON files holding objects, triangle meshes, and material node
// graphs (see [Scene]). Bakes rasterize each object's triangles in UV space
// and evaluate the material graph per texel; ambient occlusion is ray traced
// against the triangles of the selected objects only, so the selection
// passed in a [host.BakeRequest] fully determines which neighbours occlude.
//
// Mesh positions are in world space; object transforms are not modeled.
//
// A Host is not safe for concurrent use.
package soft

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host"
	"github.com/matzehuels/texbake/pkg/shader"
)

const (
	// DefaultAOSamples is the number of hemisphere rays per texel.
	DefaultAOSamples = 64

	// DefaultAODistance is the maximum occluder distance in scene units.
	DefaultAODistance = 1.0
)

// DefaultOutputSettings mirror a fresh scene: filmic view, 8-bit RGB PNG.
var DefaultOutputSettings = host.OutputSettings{
	ViewTransform: "Filmic",
	FileFormat:    "PNG",
	ColorMode:     "RGB",
	ColorDepth:    8,
	Compression:   15,
}

type object struct {
	info      host.ObjectInfo
	mesh      *Mesh
	materials []*shader.Material
}

// Host is the software render host.
type Host struct {
	logger     *log.Logger
	aoSamples  int
	aoDistance float64

	dir     string
	objects map[host.ObjectID]*object
	order   []host.ObjectID
	images  map[string]*host.Image
	covered map[string][]bool

	margin int
	gpu    bool
	output host.OutputSettings
}

var _ host.Host = (*Host)(nil)

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger used for host diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// WithAOSamples sets the number of occlusion rays per texel.
func WithAOSamples(n int) Option {
	return func(h *Host) { h.aoSamples = n }
}

// WithAODistance sets the maximum occluder distance.
func WithAODistance(d float64) Option {
	return func(h *Host) { h.aoDistance = d }
}

// New creates a host with an empty scene.
func New(opts ...Option) *Host {
	h := &Host{
		logger:     log.NewWithOptions(io.Discard, log.Options{}),
		aoSamples:  DefaultAOSamples,
		aoDistance: DefaultAODistance,
		output:     DefaultOutputSettings,
	}
	for _, o := range opts {
		o(h)
	}
	h.reset()
	return h
}

func (h *Host) reset() {
	h.objects = make(map[host.ObjectID]*object)
	h.order = nil
	h.images = make(map[string]*host.Image)
	h.covered = make(map[string][]bool)
}

// OpenScene replaces the current scene with the one stored at path.
func (h *Host) OpenScene(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sc, err := ReadScene(path)
	if err != nil {
		return err
	}
	return h.Load(sc)
}

// AddMesh adds a mesh object. parent may be empty.
func (h *Host) AddMesh(id, parent host.ObjectID, m *Mesh, mats ...*shader.Material) error {
	if err := m.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "mesh %s", id)
	}
	return h.add(&object{
		info:      host.ObjectInfo{ID: id, Type: host.ObjectMesh, Parent: parent},
		mesh:      m,
		materials: mats,
	})
}

// AddEmpty adds an empty (transform-only) object.
func (h *Host) AddEmpty(id, parent host.ObjectID) error {
	return h.add(&object{info: host.ObjectInfo{ID: id, Type: host.ObjectEmpty, Parent: parent}})
}

func (h *Host) add(o *object) error {
	id := o.info.ID
	if id == "" {
		return errors.New(errors.ErrCodeInvalidInput, "object name is empty")
	}
	if _, dup := h.objects[id]; dup {
		return errors.New(errors.ErrCodeInvalidInput, "duplicate object %q", id)
	}
	if p := o.info.Parent; p != "" {
		parent, ok := h.objects[p]
		if !ok {
			return errors.New(errors.ErrCodeObjectNotFound, "parent %q of %q not found", p, id)
		}
		parent.info.Children = append(parent.info.Children, id)
	}
	h.objects[id] = o
	h.order = append(h.order, id)
	return nil
}

// Objects lists scene objects in insertion order.
func (h *Host) Objects() []host.ObjectInfo {
	out := make([]host.ObjectInfo, 0, len(h.order))
	for _, id := range h.order {
		info := h.objects[id].info
		info.Children = slices.Clone(info.Children)
		out = append(out, info)
	}
	return out
}

func (h *Host) object(id host.ObjectID) (*object, error) {
	o, ok := h.objects[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeObjectNotFound, "object %q not found", id)
	}
	return o, nil
}

func (h *Host) mesh(id host.ObjectID) (*object, error) {
	o, err := h.object(id)
	if err != nil {
		return nil, err
	}
	if o.mesh == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "object %q is not a mesh", id)
	}
	return o, nil
}

// Materials returns the material slots of obj. The returned materials are
// live: edits to their graphs change the scene.
func (h *Host) Materials(obj host.ObjectID) ([]*shader.Material, error) {
	o, err := h.object(obj)
	if err != nil {
		return nil, err
	}
	return slices.Clone(o.materials), nil
}

// NewMaterial creates a material with an empty graph. It is not assigned
// to any object until [Host.AssignMaterials].
func (h *Host) NewMaterial(name string) *shader.Material {
	return shader.NewMaterial(name)
}

// AssignMaterials replaces all material slots of obj.
func (h *Host) AssignMaterials(obj host.ObjectID, mats []*shader.Material) error {
	o, err := h.object(obj)
	if err != nil {
		return err
	}
	o.materials = slices.Clone(mats)
	if o.mesh != nil {
		for i := range o.mesh.MaterialIndex {
			if o.mesh.MaterialIndex[i] >= len(mats) {
				o.mesh.MaterialIndex[i] = 0
			}
		}
	}
	return nil
}

// Configure sets the bake margin and device. The GPU flag has no effect on
// the software host.
func (h *Host) Configure(margin int, gpu bool) {
	h.margin = margin
	h.gpu = gpu
	if gpu {
		h.logger.Debug("GPU requested; software host bakes on CPU")
	}
}

// Margin returns the configured bake margin in pixels.
func (h *Host) Margin() int { return h.margin }

// Image returns a registered image by name.
func (h *Host) Image(name string) (*host.Image, bool) {
	img, ok := h.images[name]
	return img, ok
}

// CreateImage allocates an image and registers it under name, replacing
// any image already registered with that name.
func (h *Host) CreateImage(name string, w, ht int, cs host.ColorSpace, float bool) (*host.Image, error) {
	if w <= 0 || ht <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidResolution, "image %q: invalid size %dx%d", name, w, ht)
	}
	img := host.NewImage(name, w, ht, cs, float)
	h.images[name] = img
	h.covered[name] = make([]bool, w*ht)
	return img, nil
}

func (h *Host) String() string {
	return fmt.Sprintf("soft.Host(%d objects, %d images)", len(h.objects), len(h.images))
}
