// Package host defines the render and material collaborator that texbake
// drives: scene access, node-graph materials, image buffers, bake and
// compositor primitives, and scene export.
//
// The bake core in [github.com/matzehuels/texbake/pkg/bake] only depends on
// these interfaces. [github.com/matzehuels/texbake/pkg/host/soft] provides a
// complete in-process implementation.
//
// Selection is never ambient: every [BakeRequest] names the objects that are
// selected and the active one explicitly.
package host

import (
	"context"

	"github.com/matzehuels/texbake/pkg/shader"
)

// ObjectID identifies an object in the open scene. It is the object's name.
type ObjectID string

// ObjectType classifies scene objects. Only meshes are baked.
type ObjectType string

const (
	ObjectMesh  ObjectType = "mesh"
	ObjectEmpty ObjectType = "empty"
)

// ObjectInfo describes one scene object.
type ObjectInfo struct {
	ID       ObjectID
	Type     ObjectType
	Parent   ObjectID
	Children []ObjectID
}

// ColorSpace is the encoding of an image's stored values.
type ColorSpace string

const (
	// SRGB marks perceptual color data (albedo, emission).
	SRGB ColorSpace = "sRGB"
	// NonColor marks linear data (normals, roughness, metallic, AO).
	NonColor ColorSpace = "Non-Color"
)

// Image is an in-memory RGBA buffer. Pix holds Width*Height*4 float32
// values, row-major, top row first.
type Image struct {
	Name       string
	Width      int
	Height     int
	ColorSpace ColorSpace
	Float      bool
	Pix        []float32
	Path       string
}

// NewImage allocates a black, opaque image.
func NewImage(name string, w, h int, cs ColorSpace, float bool) *Image {
	img := &Image{Name: name, Width: w, Height: h, ColorSpace: cs, Float: float, Pix: make([]float32, w*h*4)}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 1
	}
	return img
}

// At returns the RGBA value at (x, y).
func (img *Image) At(x, y int) [4]float32 {
	i := (y*img.Width + x) * 4
	return [4]float32{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

// Set stores an RGBA value at (x, y).
func (img *Image) Set(x, y int, c [4]float32) {
	i := (y*img.Width + x) * 4
	copy(img.Pix[i:i+4], c[:])
}

// Quantity is what a bake pass captures.
type Quantity string

const (
	// QuantityEmit captures emitted radiance only; light independent.
	QuantityEmit Quantity = "EMIT"
	// QuantityNormal captures tangent-space normals.
	QuantityNormal Quantity = "NORMAL"
	// QuantityAO captures ambient occlusion over the selected objects.
	QuantityAO Quantity = "AO"
)

// SelectionPolicy controls which objects take part in a bake call.
type SelectionPolicy string

const (
	// SelfOnly bakes one object with no neighbours present.
	SelfOnly SelectionPolicy = "self"
	// Group bakes all selected objects together so they occlude each other.
	Group SelectionPolicy = "group"
)

// Selection is the explicit object selection for one host call.
type Selection struct {
	Objects []ObjectID
	Active  ObjectID
}

// BakeRequest is one blocking bake call. Each selected object bakes into the
// image bound to the active image texture node of each of its materials.
type BakeRequest struct {
	Quantity  Quantity
	Selection Selection
	Margin    int
}

// ChannelSource feeds one output channel of a composite. When Image is nil,
// Constant is used.
type ChannelSource struct {
	Image    *Image
	Channel  int
	Constant float32
}

// CompositeJob renders a four-channel image from per-channel sources. The
// result is registered with the host under Name.
type CompositeJob struct {
	Name     string
	Width    int
	Height   int
	Channels [4]ChannelSource
}

// OutputSettings are the global render output settings that the compositor
// honours when writing files.
type OutputSettings struct {
	ViewTransform string // "Filmic" or "Standard"
	FileFormat    string // "PNG"
	ColorMode     string // "RGB" or "RGBA"
	ColorDepth    int    // 8 or 16
	Compression   int    // 0-100
}

// SceneHost gives access to the open scene and its materials.
type SceneHost interface {
	OpenScene(ctx context.Context, path string) error
	Objects() []ObjectInfo
	Materials(obj ObjectID) ([]*shader.Material, error)
	HasUV(obj ObjectID) (bool, error)
	EnsureUV(ctx context.Context, obj ObjectID) (generated bool, err error)
	NewMaterial(name string) *shader.Material
	AssignMaterials(obj ObjectID, mats []*shader.Material) error
	Configure(margin int, gpu bool)
}

// ImageHost allocates and stores images.
type ImageHost interface {
	CreateImage(name string, w, h int, cs ColorSpace, float bool) (*Image, error)
	SaveImage(img *Image, path string) error
	LoadImage(path string, cs ColorSpace) (*Image, error)
}

// Baker runs bake passes.
type Baker interface {
	Bake(ctx context.Context, req BakeRequest) error
}

// Compositor renders channel composites through the global output settings.
type Compositor interface {
	OutputSettings() OutputSettings
	SetOutputSettings(s OutputSettings)
	RenderComposite(ctx context.Context, job CompositeJob, path string) (*Image, error)
}

// Exporter writes the scene to an interchange file.
type Exporter interface {
	ExportScene(ctx context.Context, path, format string, objects []ObjectID) error
}

// Host is the full collaborator surface.
type Host interface {
	SceneHost
	ImageHost
	Baker
	Compositor
	Exporter
}
