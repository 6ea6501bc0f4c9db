package soft

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host"
	"github.com/matzehuels/texbake/pkg/shader"
)

// FormatJSON is the only export format the software host writes.
const FormatJSON = "json"

// Scene is the on-disk scene format.
type Scene struct {
	Objects   []SceneObject      `json:"objects"`
	Materials []*shader.Material `json:"materials,omitempty"`
	Images    []SceneImage       `json:"images,omitempty"`

	// dir is the directory image paths are resolved against.
	dir string
}

// SceneObject is one object entry. Materials name entries of Scene.Materials.
type SceneObject struct {
	Name      string          `json:"name"`
	Type      host.ObjectType `json:"type"`
	Parent    string          `json:"parent,omitempty"`
	Mesh      *Mesh           `json:"mesh,omitempty"`
	Materials []string        `json:"materials,omitempty"`
}

// SceneImage declares an image file used by image texture nodes.
type SceneImage struct {
	Name       string          `json:"name"`
	Path       string          `json:"path"`
	ColorSpace host.ColorSpace `json:"color_space,omitempty"`
}

// Mesh is a triangle mesh. UVs, when present, hold one coordinate per
// triangle corner. MaterialIndex, when present, assigns each triangle to a
// material slot; triangles default to slot 0.
type Mesh struct {
	Positions     [][3]float64    `json:"positions"`
	Triangles     [][3]int        `json:"triangles"`
	UVs           [][3][2]float64 `json:"uvs,omitempty"`
	MaterialIndex []int           `json:"material_index,omitempty"`
}

// Validate checks index ranges and per-triangle array lengths.
func (m *Mesh) Validate() error {
	for i, t := range m.Triangles {
		for _, v := range t {
			if v < 0 || v >= len(m.Positions) {
				return fmt.Errorf("triangle %d: vertex %d out of range", i, v)
			}
		}
	}
	if len(m.UVs) != 0 && len(m.UVs) != len(m.Triangles) {
		return fmt.Errorf("uvs: %d entries for %d triangles", len(m.UVs), len(m.Triangles))
	}
	if len(m.MaterialIndex) != 0 && len(m.MaterialIndex) != len(m.Triangles) {
		return fmt.Errorf("material_index: %d entries for %d triangles", len(m.MaterialIndex), len(m.Triangles))
	}
	return nil
}

func (m *Mesh) slot(tri int) int {
	if tri < len(m.MaterialIndex) {
		return m.MaterialIndex[tri]
	}
	return 0
}

func (m *Mesh) clone() *Mesh {
	return &Mesh{
		Positions:     slices.Clone(m.Positions),
		Triangles:     slices.Clone(m.Triangles),
		UVs:           slices.Clone(m.UVs),
		MaterialIndex: slices.Clone(m.MaterialIndex),
	}
}

// ReadScene decodes a scene file.
func ReadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "scene %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read scene %s", path)
	}
	var sc Scene
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse scene %s", path)
	}
	sc.dir = filepath.Dir(path)
	return &sc, nil
}

// Load replaces the host's scene with sc. Parents must precede children.
func (h *Host) Load(sc *Scene) error {
	h.reset()
	h.dir = sc.dir

	for _, si := range sc.Images {
		p := si.Path
		if !filepath.IsAbs(p) && sc.dir != "" {
			p = filepath.Join(sc.dir, p)
		}
		cs := si.ColorSpace
		if cs == "" {
			cs = host.SRGB
		}
		img, err := h.LoadImage(p, cs)
		if err != nil {
			return err
		}
		img.Name = si.Name
		h.images[si.Name] = img
	}

	mats := make(map[string]*shader.Material, len(sc.Materials))
	for _, m := range sc.Materials {
		if err := m.Graph.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "material %q", m.Name)
		}
		mats[m.Name] = m
	}

	for _, so := range sc.Objects {
		var slots []*shader.Material
		for _, name := range so.Materials {
			m, ok := mats[name]
			if !ok {
				return errors.New(errors.ErrCodeMissingMaterial, "object %q references unknown material %q", so.Name, name)
			}
			slots = append(slots, m)
		}
		id, parent := host.ObjectID(so.Name), host.ObjectID(so.Parent)
		var err error
		switch so.Type {
		case host.ObjectMesh, "":
			if so.Mesh == nil {
				return errors.New(errors.ErrCodeInvalidInput, "mesh object %q has no mesh data", so.Name)
			}
			err = h.AddMesh(id, parent, so.Mesh, slots...)
		case host.ObjectEmpty:
			err = h.AddEmpty(id, parent)
		default:
			err = errors.New(errors.ErrCodeInvalidInput, "object %q: unknown type %q", so.Name, so.Type)
		}
		if err != nil {
			return err
		}
	}
	h.logger.Debug("scene loaded", "objects", len(h.order), "materials", len(mats), "images", len(sc.Images))
	return nil
}

// ExportScene writes the given objects, their materials, and the images
// those materials reference to path as a JSON scene. Image paths are
// written relative to the exported file when possible.
func (h *Host) ExportScene(ctx context.Context, path, format string, objects []host.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if format != FormatJSON {
		return errors.New(errors.ErrCodeUnsupported, "export format %q (software host writes %q)", format, FormatJSON)
	}

	out := Scene{}
	seenMat := make(map[*shader.Material]bool)
	seenImg := make(map[string]bool)
	dir := filepath.Dir(path)

	for _, id := range objects {
		o, err := h.object(id)
		if err != nil {
			return err
		}
		so := SceneObject{Name: string(id), Type: o.info.Type}
		if o.info.Parent != "" && slices.Contains(objects, o.info.Parent) {
			so.Parent = string(o.info.Parent)
		}
		if o.mesh != nil {
			so.Mesh = o.mesh.clone()
		}
		for _, m := range o.materials {
			so.Materials = append(so.Materials, m.Name)
			if seenMat[m] {
				continue
			}
			seenMat[m] = true
			out.Materials = append(out.Materials, m)
			for _, n := range m.Graph.Nodes() {
				if n.Kind != shader.KindImageTexture || n.Image == "" || seenImg[n.Image] {
					continue
				}
				img, ok := h.images[n.Image]
				if !ok || img.Path == "" {
					continue
				}
				seenImg[n.Image] = true
				p := img.Path
				if rel, err := filepath.Rel(dir, p); err == nil {
					p = filepath.ToSlash(rel)
				}
				out.Images = append(out.Images, SceneImage{Name: n.Image, Path: p, ColorSpace: img.ColorSpace})
			}
		}
		out.Objects = append(out.Objects, so)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode scene")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	h.logger.Debug("scene exported", "path", path, "objects", len(out.Objects))
	return nil
}
