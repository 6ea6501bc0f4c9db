package soft

import (
	"math"

	"github.com/matzehuels/texbake/pkg/host"
	"github.com/matzehuels/texbake/pkg/shader"
)

// sample is the shading context of one texel.
type sample struct {
	uv     [2]float64
	pos    [3]float64
	normal [3]float64
}

// missingImage is what an unbound or missing image texture evaluates to.
var missingImage = shader.RGBA(1, 0, 1, 1)

// evaluator evaluates a material graph at one texel. All results are linear.
type evaluator struct {
	images map[string]*host.Image
	g      *shader.Graph
	s      sample
}

func (e *evaluator) input(n *shader.Node, p shader.Port) shader.Value {
	src, ok := e.g.Source(n.In(p))
	if !ok {
		return n.Value(p)
	}
	from, ok := e.g.Node(src.Node)
	if !ok {
		return n.Value(p)
	}
	return e.output(from, src.Port)
}

func (e *evaluator) output(n *shader.Node, p shader.Port) shader.Value {
	switch n.Kind {
	case shader.KindRGB, shader.KindValue:
		return n.Value(p)
	case shader.KindTexCoord:
		return shader.RGBA(e.s.uv[0], e.s.uv[1], 0, 0)
	case shader.KindImageTexture:
		uv := e.s.uv
		if _, linked := e.g.Source(n.In(shader.PortVector)); linked {
			v := e.input(n, shader.PortVector).AsColor()
			uv = [2]float64{v[0], v[1]}
		}
		c := e.sampleImage(n.Image, uv)
		if p == shader.PortAlpha {
			return shader.Scalar(c.V[3])
		}
		return c
	case shader.KindSeparateColor:
		c := e.input(n, shader.PortColor).AsColor()
		switch p {
		case shader.PortRed:
			return shader.Scalar(c[0])
		case shader.PortGreen:
			return shader.Scalar(c[1])
		case shader.PortBlue:
			return shader.Scalar(c[2])
		}
	case shader.KindNormalMap:
		t := e.tangentNormal(n)
		return shader.RGBA(t[0], t[1], t[2], 0)
	}
	return shader.Value{}
}

// sampleImage does a nearest-texel lookup with wrapping. sRGB images are
// decoded to linear.
func (e *evaluator) sampleImage(name string, uv [2]float64) shader.Value {
	img, ok := e.images[name]
	if !ok || img.Width == 0 || img.Height == 0 {
		return missingImage
	}
	u := uv[0] - math.Floor(uv[0])
	v := uv[1] - math.Floor(uv[1])
	x := min(img.Width-1, int(u*float64(img.Width)))
	y := min(img.Height-1, int((1-v)*float64(img.Height)))
	c := img.At(x, y)
	out := [4]float64{float64(c[0]), float64(c[1]), float64(c[2]), float64(c[3])}
	if img.ColorSpace == host.SRGB {
		for k := range 3 {
			out[k] = srgbDecode(out[k])
		}
	}
	return shader.RGBA(out[0], out[1], out[2], out[3])
}

// tangentNormal decodes a normal map node into a unit tangent-space normal.
func (e *evaluator) tangentNormal(n *shader.Node) [3]float64 {
	c := e.input(n, shader.PortColor).AsColor()
	s := e.input(n, shader.PortStrength).AsScalar()
	d := [3]float64{2*c[0] - 1, 2*c[1] - 1, 2*c[2] - 1}
	flat := [3]float64{0, 0, 1}
	return normalize(add(scale(flat, 1-s), scale(d, s)))
}

// surface returns the node feeding the output surface, if any.
func (e *evaluator) surface() (*shader.Node, bool) {
	out, ok := e.g.Find(shader.KindOutput)
	if !ok {
		return nil, false
	}
	src, ok := e.g.Source(out.In(shader.PortSurface))
	if !ok {
		return nil, false
	}
	return e.g.Node(src.Node)
}

// emit returns the emitted radiance of the surface shader.
func (e *evaluator) emit() [4]float64 {
	n, ok := e.surface()
	if !ok {
		return [4]float64{0, 0, 0, 1}
	}
	var c [4]float64
	var s float64
	switch n.Kind {
	case shader.KindEmission:
		c = e.input(n, shader.PortColor).AsColor()
		s = e.input(n, shader.PortStrength).AsScalar()
	case shader.KindPrincipled:
		c = e.input(n, shader.PortEmissionColor).AsColor()
		s = e.input(n, shader.PortEmissionStrength).AsScalar()
	default:
		return [4]float64{0, 0, 0, 1}
	}
	return [4]float64{c[0] * s, c[1] * s, c[2] * s, 1}
}

// normal returns the encoded tangent-space normal of the surface shader.
// Without a linked normal map the surface is flat.
func (e *evaluator) normal() [4]float64 {
	t := [3]float64{0, 0, 1}
	if n, ok := e.surface(); ok && n.Kind == shader.KindPrincipled {
		if src, ok := e.g.Source(n.In(shader.PortNormal)); ok {
			if nm, ok := e.g.Node(src.Node); ok && nm.Kind == shader.KindNormalMap {
				t = e.tangentNormal(nm)
			}
		}
	}
	return [4]float64{t[0]*0.5 + 0.5, t[1]*0.5 + 0.5, t[2]*0.5 + 0.5, 1}
}
