package soft

import (
	"testing"

	"github.com/matzehuels/texbake/pkg/host"
	"github.com/matzehuels/texbake/pkg/shader"
)

// quad returns a two-triangle rectangle in the plane z, facing +z, with
// UVs spanning [0,1] when withUV is set.
func quad(z, x0, y0, x1, y1 float64, withUV bool) *Mesh {
	m := &Mesh{
		Positions: [][3]float64{{x0, y0, z}, {x1, y0, z}, {x1, y1, z}, {x0, y1, z}},
		Triangles: [][3]int{{0, 1, 2}, {0, 2, 3}},
	}
	if withUV {
		m.UVs = [][3][2]float64{
			{{0, 0}, {1, 0}, {1, 1}},
			{{0, 0}, {1, 1}, {0, 1}},
		}
	}
	return m
}

// destMaterial builds principled -> output with an active image texture
// bound to image.
func destMaterial(t *testing.T, name, image string) *shader.Material {
	t.Helper()
	m := shader.NewMaterial(name)
	g := m.Graph
	bsdf, _ := g.Add(shader.KindPrincipled)
	out, _ := g.Add(shader.KindOutput)
	if err := g.Connect(bsdf.Out(shader.PortBSDF), out.In(shader.PortSurface)); err != nil {
		t.Fatal(err)
	}
	tex, _ := g.Add(shader.KindImageTexture)
	if err := tex.BindImage(image); err != nil {
		t.Fatal(err)
	}
	if err := g.SetActive(tex.ID); err != nil {
		t.Fatal(err)
	}
	return m
}

// emissionMaterial routes a constant emission color to the surface.
func emissionMaterial(t *testing.T, name, image string, c shader.Value) (*shader.Material, *shader.Node) {
	t.Helper()
	m := destMaterial(t, name, image)
	g := m.Graph
	out, _ := g.Find(shader.KindOutput)
	em, _ := g.Add(shader.KindEmission)
	if err := em.Set(shader.PortColor, c); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect(em.Out(shader.PortEmission), out.In(shader.PortSurface)); err != nil {
		t.Fatal(err)
	}
	return m, em
}

func near(a, b, tol float64) bool {
	d := a - b
	return d <= tol && d >= -tol
}

func pixel(img *host.Image, x, y int) [4]float64 {
	c := img.At(x, y)
	return [4]float64{float64(c[0]), float64(c[1]), float64(c[2]), float64(c[3])}
}
