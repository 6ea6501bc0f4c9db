package bake

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host"
	"github.com/matzehuels/texbake/pkg/shader"
)

// MaterialHost creates and assigns materials.
type MaterialHost interface {
	NewMaterial(name string) *shader.Material
	AssignMaterials(obj host.ObjectID, mats []*shader.Material) error
}

// Inputs are the baked images available to an assembled material. Nil
// fields are omitted from the graph.
type Inputs struct {
	Albedo            *host.Image
	Normal            *host.Image
	Emission          *host.Image
	MetallicRoughness *host.Image
}

// Assembler builds materials that sample baked images.
type Assembler struct {
	host   MaterialHost
	logger *log.Logger
}

// NewAssembler creates an assembler over h.
func NewAssembler(h MaterialHost, logger *log.Logger) *Assembler {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Assembler{host: h, logger: logger}
}

// Assemble builds a material named name:
//
//	TexCoord.UV -> ImageTexture(albedo).Color -> Principled.Base Color
//	TexCoord.UV -> ImageTexture(normal).Color -> NormalMap -> Principled.Normal
//	TexCoord.UV -> ImageTexture(packed).Color -> SeparateColor
//	               (Green -> Roughness, Blue -> Metallic)
//	Principled.BSDF -> Output.Surface
//
// Normal and packed images are switched to Non-Color.
func (a *Assembler) Assemble(name string, in Inputs) (*shader.Material, error) {
	mat := a.host.NewMaterial(name)
	b := &graphBuilder{g: mat.Graph}

	uv := b.add(shader.KindTexCoord, "UV")
	bsdf := b.add(shader.KindPrincipled, "")
	out := b.add(shader.KindOutput, "")

	sampler := func(img *host.Image, label string) *shader.Node {
		tex := b.add(shader.KindImageTexture, label)
		if b.err == nil {
			b.err = tex.BindImage(img.Name)
		}
		b.link(uv.Out(shader.PortUV), tex.In(shader.PortVector))
		return tex
	}

	if in.Albedo != nil {
		tex := sampler(in.Albedo, "Albedo")
		b.link(tex.Out(shader.PortColor), bsdf.In(shader.PortBaseColor))
	}
	if in.Normal != nil {
		in.Normal.ColorSpace = host.NonColor
		tex := sampler(in.Normal, "Normal")
		nm := b.add(shader.KindNormalMap, "")
		b.link(tex.Out(shader.PortColor), nm.In(shader.PortColor))
		b.link(nm.Out(shader.PortNormal), bsdf.In(shader.PortNormal))
	}
	if in.MetallicRoughness != nil {
		in.MetallicRoughness.ColorSpace = host.NonColor
		tex := sampler(in.MetallicRoughness, "Metallic-Roughness")
		sep := b.add(shader.KindSeparateColor, "")
		b.link(tex.Out(shader.PortColor), sep.In(shader.PortColor))
		b.link(sep.Out(shader.PortGreen), bsdf.In(shader.PortRoughness))
		b.link(sep.Out(shader.PortBlue), bsdf.In(shader.PortMetallic))
	}
	if in.Emission != nil {
		tex := sampler(in.Emission, "Emission")
		b.link(tex.Out(shader.PortColor), bsdf.In(shader.PortEmissionColor))
		if b.err == nil {
			b.err = bsdf.Set(shader.PortEmissionStrength, shader.Scalar(1))
		}
	}
	b.link(bsdf.Out(shader.PortBSDF), out.In(shader.PortSurface))

	if b.err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, graphError(b.err), "assemble %s", name)
	}
	a.logger.Debug("assembled material", "name", name, "nodes", mat.Graph.NodeCount())
	return mat, nil
}

// Apply replaces every material slot of each object with mat.
func (a *Assembler) Apply(mat *shader.Material, objects []host.ObjectID) error {
	for _, id := range objects {
		if err := a.host.AssignMaterials(id, []*shader.Material{mat}); err != nil {
			return err
		}
	}
	return nil
}

// graphBuilder records the first error and turns later calls into no-ops.
type graphBuilder struct {
	g   *shader.Graph
	err error
}

func (b *graphBuilder) add(k shader.Kind, label string) *shader.Node {
	n, err := b.g.Add(k)
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return &shader.Node{Kind: k}
	}
	n.Label = label
	return n
}

func (b *graphBuilder) link(from, to shader.Socket) {
	if b.err != nil {
		return
	}
	b.err = b.g.Connect(from, to)
}
