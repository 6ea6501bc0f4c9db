package soft

import (
	"context"
	"math"

	"github.com/matzehuels/texbake/pkg/host"
)

// IslandMargin is the fraction of each atlas cell left empty around an island.
const IslandMargin = 0.02

// HasUV reports whether obj has a UV set.
func (h *Host) HasUV(obj host.ObjectID) (bool, error) {
	o, err := h.mesh(obj)
	if err != nil {
		return false, err
	}
	return len(o.mesh.UVs) == len(o.mesh.Triangles) && len(o.mesh.UVs) > 0, nil
}

// EnsureUV generates a UV set for obj when it has none. Each triangle is
// projected onto the plane of its dominant normal axis and packed into its
// own cell of a square grid atlas.
func (h *Host) EnsureUV(ctx context.Context, obj host.ObjectID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := h.HasUV(obj)
	if err != nil || ok {
		return false, err
	}
	m := h.objects[obj].mesh
	m.UVs = projectUVs(m)
	h.logger.Debug("generated UVs", "object", obj, "islands", len(m.UVs))
	return true, nil
}

func projectUVs(m *Mesh) [][3][2]float64 {
	n := len(m.Triangles)
	if n == 0 {
		return nil
	}
	grid := int(math.Ceil(math.Sqrt(float64(n))))
	cell := 1.0 / float64(grid)
	pad := cell * IslandMargin
	span := cell - 2*pad

	uvs := make([][3][2]float64, n)
	for i, t := range m.Triangles {
		p := [3][3]float64{m.Positions[t[0]], m.Positions[t[1]], m.Positions[t[2]]}
		nrm := cross(sub(p[1], p[0]), sub(p[2], p[0]))
		// Drop the dominant axis.
		ax, ay := 1, 2
		switch {
		case math.Abs(nrm[2]) >= math.Abs(nrm[0]) && math.Abs(nrm[2]) >= math.Abs(nrm[1]):
			ax, ay = 0, 1
		case math.Abs(nrm[1]) >= math.Abs(nrm[0]):
			ax, ay = 0, 2
		}
		var flat [3][2]float64
		minU, minV := math.Inf(1), math.Inf(1)
		maxU, maxV := math.Inf(-1), math.Inf(-1)
		for k := range 3 {
			flat[k] = [2]float64{p[k][ax], p[k][ay]}
			minU, maxU = math.Min(minU, flat[k][0]), math.Max(maxU, flat[k][0])
			minV, maxV = math.Min(minV, flat[k][1]), math.Max(maxV, flat[k][1])
		}
		size := math.Max(maxU-minU, maxV-minV)
		if size == 0 {
			size = 1
		}
		ox := float64(i%grid)*cell + pad
		oy := float64(i/grid)*cell + pad
		for k := range 3 {
			uvs[i][k] = [2]float64{
				ox + (flat[k][0]-minU)/size*span,
				oy + (flat[k][1]-minV)/size*span,
			}
		}
	}
	return uvs
}

func sub(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func add(a, b [3]float64) [3]float64 { return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }

func scale(a [3]float64, s float64) [3]float64 { return [3]float64{a[0] * s, a[1] * s, a[2] * s} }

func dot(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

func normalize(a [3]float64) [3]float64 {
	l := math.Sqrt(dot(a, a))
	if l == 0 {
		return [3]float64{0, 0, 1}
	}
	return scale(a, 1/l)
}
