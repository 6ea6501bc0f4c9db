package bake

import (
	"context"
	"fmt"

	"github.com/matzehuels/texbake/pkg/host"
	"github.com/matzehuels/texbake/pkg/shader"
)

// fakeHost implements the host surfaces the bake package uses, recording
// calls and optionally failing them.
type fakeHost struct {
	mats     map[host.ObjectID][]*shader.Material
	images   map[string]*host.Image
	saved    []string
	requests []host.BakeRequest

	bakeErr error
	// during runs inside Bake, while the rewrite is in place.
	during func(req host.BakeRequest)

	settings   host.OutputSettings
	renderSeen host.OutputSettings
	renderErr  error
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		mats:     make(map[host.ObjectID][]*shader.Material),
		images:   make(map[string]*host.Image),
		settings: host.OutputSettings{ViewTransform: "Filmic", FileFormat: "PNG", ColorMode: "RGB", ColorDepth: 8},
	}
}

func (f *fakeHost) Materials(obj host.ObjectID) ([]*shader.Material, error) {
	m, ok := f.mats[obj]
	if !ok {
		return nil, fmt.Errorf("no object %q", obj)
	}
	return m, nil
}

func (f *fakeHost) Bake(_ context.Context, req host.BakeRequest) error {
	f.requests = append(f.requests, req)
	if f.during != nil {
		f.during(req)
	}
	return f.bakeErr
}

func (f *fakeHost) CreateImage(name string, w, h int, cs host.ColorSpace, float bool) (*host.Image, error) {
	img := host.NewImage(name, w, h, cs, float)
	f.images[name] = img
	return img, nil
}

func (f *fakeHost) SaveImage(img *host.Image, path string) error {
	f.saved = append(f.saved, path)
	img.Path = path
	return nil
}

func (f *fakeHost) LoadImage(path string, cs host.ColorSpace) (*host.Image, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeHost) OutputSettings() host.OutputSettings     { return f.settings }
func (f *fakeHost) SetOutputSettings(s host.OutputSettings) { f.settings = s }

func (f *fakeHost) RenderComposite(_ context.Context, job host.CompositeJob, path string) (*host.Image, error) {
	f.renderSeen = f.settings
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	img := host.NewImage(job.Name, job.Width, job.Height, host.NonColor, false)
	img.Path = path
	return img, nil
}

func (f *fakeHost) NewMaterial(name string) *shader.Material { return shader.NewMaterial(name) }

func (f *fakeHost) AssignMaterials(obj host.ObjectID, mats []*shader.Material) error {
	if _, ok := f.mats[obj]; !ok {
		return fmt.Errorf("no object %q", obj)
	}
	f.mats[obj] = mats
	return nil
}

// principledMaterial builds principled -> output, optionally with the
// named input driven by a constant RGB node.
func principledMaterial(name string, linked shader.Port) *shader.Material {
	m := shader.NewMaterial(name)
	g := m.Graph
	bsdf, _ := g.Add(shader.KindPrincipled)
	out, _ := g.Add(shader.KindOutput)
	_ = g.Connect(bsdf.Out(shader.PortBSDF), out.In(shader.PortSurface))
	if linked != "" {
		rgb, _ := g.Add(shader.KindRGB)
		_ = rgb.Set(shader.PortColor, shader.RGBA(0.1, 0.2, 0.3, 1))
		_ = g.Connect(rgb.Out(shader.PortColor), bsdf.In(linked))
	}
	return m
}
