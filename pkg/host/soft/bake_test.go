package soft

import (
	"context"
	"testing"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host"
	"github.com/matzehuels/texbake/pkg/shader"
)

func emitRequest(objs ...host.ObjectID) host.BakeRequest {
	return host.BakeRequest{
		Quantity:  host.QuantityEmit,
		Selection: host.Selection{Objects: objs, Active: objs[0]},
	}
}

func TestBakeEmitColorSpaces(t *testing.T) {
	tests := []struct {
		name string
		cs   host.ColorSpace
		want [3]float64
	}{
		{"non-color stores linear", host.NonColor, [3]float64{0.25, 0.5, 1}},
		{"srgb stores encoded", host.SRGB, [3]float64{srgbEncode(0.25), srgbEncode(0.5), 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			if _, err := h.CreateImage("target", 8, 8, tt.cs, false); err != nil {
				t.Fatal(err)
			}
			m, _ := emissionMaterial(t, "Mat", "target", shader.RGBA(0.25, 0.5, 1, 1))
			if err := h.AddMesh("Plane", "", quad(0, 0, 0, 1, 1, true), m); err != nil {
				t.Fatal(err)
			}
			if err := h.Bake(context.Background(), emitRequest("Plane")); err != nil {
				t.Fatal(err)
			}
			img, _ := h.Image("target")
			got := pixel(img, 3, 4)
			for k := range 3 {
				if !near(got[k], tt.want[k], 1e-5) {
					t.Errorf("channel %d = %v, want %v", k, got[k], tt.want[k])
				}
			}
		})
	}
}

func TestBakeScalarBroadcast(t *testing.T) {
	h := New()
	_, _ = h.CreateImage("rough", 4, 4, host.NonColor, false)
	m, _ := emissionMaterial(t, "Mat", "rough", shader.Scalar(0.3))
	_ = h.AddMesh("Plane", "", quad(0, 0, 0, 1, 1, true), m)

	if err := h.Bake(context.Background(), emitRequest("Plane")); err != nil {
		t.Fatal(err)
	}
	img, _ := h.Image("rough")
	got := pixel(img, 1, 1)
	if !near(got[0], 0.3, 1e-6) || !near(got[1], 0.3, 1e-6) || !near(got[2], 0.3, 1e-6) || got[3] != 1 {
		t.Errorf("pixel = %v, want (0.3, 0.3, 0.3, 1)", got)
	}
}

func TestBakeLaterBakeOverwrites(t *testing.T) {
	h := New()
	_, _ = h.CreateImage("target", 8, 8, host.NonColor, false)
	m, em := emissionMaterial(t, "Mat", "target", shader.RGBA(1, 0, 0, 1))
	_ = h.AddMesh("Plane", "", quad(0, 0, 0, 1, 1, true), m)

	ctx := context.Background()
	if err := h.Bake(ctx, emitRequest("Plane")); err != nil {
		t.Fatal(err)
	}
	_ = em.Set(shader.PortColor, shader.RGBA(0, 1, 0, 1))
	if err := h.Bake(ctx, emitRequest("Plane")); err != nil {
		t.Fatal(err)
	}

	img, _ := h.Image("target")
	for y := range img.Height {
		for x := range img.Width {
			if got := pixel(img, x, y); got != [4]float64{0, 1, 0, 1} {
				t.Fatalf("pixel (%d,%d) = %v, want only the later bake", x, y, got)
			}
		}
	}

	// Re-creating the image starts from a clean buffer.
	fresh, _ := h.CreateImage("target", 8, 8, host.NonColor, false)
	if got := pixel(fresh, 2, 2); got != [4]float64{0, 0, 0, 1} {
		t.Errorf("recreated pixel = %v, want black", got)
	}
}

func TestBakeNormalFlatAndMapped(t *testing.T) {
	h := New()
	_, _ = h.CreateImage("normal", 4, 4, host.NonColor, true)
	m := destMaterial(t, "Mat", "normal")
	_ = h.AddMesh("Plane", "", quad(0, 0, 0, 1, 1, true), m)

	ctx := context.Background()
	req := host.BakeRequest{Quantity: host.QuantityNormal, Selection: host.Selection{Objects: []host.ObjectID{"Plane"}}}
	if err := h.Bake(ctx, req); err != nil {
		t.Fatal(err)
	}
	img, _ := h.Image("normal")
	if got := pixel(img, 1, 1); !near(got[0], 0.5, 1e-6) || !near(got[1], 0.5, 1e-6) || !near(got[2], 1, 1e-6) {
		t.Errorf("flat normal = %v, want (0.5, 0.5, 1)", got)
	}

	// Tilt the surface through a normal map fed by a constant color.
	g := m.Graph
	bsdf, _ := g.Find(shader.KindPrincipled)
	nm, _ := g.Add(shader.KindNormalMap)
	rgb, _ := g.Add(shader.KindRGB)
	_ = rgb.Set(shader.PortColor, shader.RGBA(1, 0.5, 0.5, 1))
	_ = g.Connect(rgb.Out(shader.PortColor), nm.In(shader.PortColor))
	_ = g.Connect(nm.Out(shader.PortNormal), bsdf.In(shader.PortNormal))
	if err := h.Bake(ctx, req); err != nil {
		t.Fatal(err)
	}
	if got := pixel(img, 1, 1); !near(got[0], 1, 1e-6) || !near(got[2], 0.5, 1e-6) {
		t.Errorf("mapped normal = %v, want +X", got)
	}
}

func TestBakeErrors(t *testing.T) {
	h := New()
	_, _ = h.CreateImage("target", 4, 4, host.NonColor, false)
	_ = h.AddMesh("NoUV", "", quad(0, 0, 0, 1, 1, false), destMaterial(t, "A", "target"))
	_ = h.AddMesh("NoDest", "", quad(0, 0, 0, 1, 1, true), shader.NewMaterial("B"))
	_ = h.AddEmpty("Empty", "")

	tests := []struct {
		name string
		req  host.BakeRequest
		code errors.Code
	}{
		{"empty selection", host.BakeRequest{Quantity: host.QuantityEmit}, errors.ErrCodeInvalidInput},
		{"missing object", emitRequest("Ghost"), errors.ErrCodeObjectNotFound},
		{"not a mesh", emitRequest("Empty"), errors.ErrCodeInvalidInput},
		{"no uv", emitRequest("NoUV"), errors.ErrCodeBakeFailed},
		{"no destination", emitRequest("NoDest"), errors.ErrCodeBakeFailed},
		{"bad quantity", host.BakeRequest{Quantity: "GLOSSY", Selection: host.Selection{Objects: []host.ObjectID{"NoDest"}}}, errors.ErrCodeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Bake(context.Background(), tt.req)
			if !errors.Is(err, tt.code) {
				t.Errorf("Bake() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestBakeMarginDilates(t *testing.T) {
	h := New()
	h.Configure(2, false)
	_, _ = h.CreateImage("target", 16, 16, host.NonColor, false)
	m, _ := emissionMaterial(t, "Mat", "target", shader.RGBA(1, 1, 1, 1))
	small := quad(0, 0, 0, 1, 1, false)
	small.UVs = [][3][2]float64{
		{{0.25, 0.25}, {0.75, 0.25}, {0.75, 0.75}},
		{{0.25, 0.25}, {0.75, 0.75}, {0.25, 0.75}},
	}
	_ = h.AddMesh("Plane", "", small, m)
	if err := h.Bake(context.Background(), emitRequest("Plane")); err != nil {
		t.Fatal(err)
	}
	img, _ := h.Image("target")
	// Island covers texels 4..11; two rings of margin reach 2 and 13.
	if got := pixel(img, 2, 8)[0]; got != 1 {
		t.Errorf("margin texel = %v, want dilated", got)
	}
	if got := pixel(img, 0, 8)[0]; got != 0 {
		t.Errorf("texel beyond margin = %v, want untouched", got)
	}
}
