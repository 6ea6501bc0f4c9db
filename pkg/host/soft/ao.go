package soft

import "math"

type occluderKey struct {
	obj int
	tri int
}

type occluder struct {
	key       occluderKey
	a, e1, e2 [3]float64
}

// occluderSet holds the triangles that may block AO rays.
type occluderSet struct {
	tris []occluder
}

func newOccluderSet(objs []*object) *occluderSet {
	s := &occluderSet{}
	for oi, o := range objs {
		for ti, t := range o.mesh.Triangles {
			a := o.mesh.Positions[t[0]]
			s.tris = append(s.tris, occluder{
				key: occluderKey{obj: oi, tri: ti},
				a:   a,
				e1:  sub(o.mesh.Positions[t[1]], a),
				e2:  sub(o.mesh.Positions[t[2]], a),
			})
		}
	}
	return s
}

// ambient returns the unoccluded fraction of the cosine-weighted hemisphere
// around n at p, using a fixed Fibonacci ray pattern.
func (s *occluderSet) ambient(p, n [3]float64, self occluderKey, samples int, dist float64) float64 {
	if samples <= 0 {
		return 1
	}
	const bias = 1e-5
	origin := add(p, scale(n, bias))
	t, b := basis(n)
	golden := math.Pi * (3 - math.Sqrt(5))
	hits := 0
	for i := range samples {
		u := (float64(i) + 0.5) / float64(samples)
		r := math.Sqrt(u)
		phi := float64(i) * golden
		x, y, z := r*math.Cos(phi), r*math.Sin(phi), math.Sqrt(1-u)
		dir := add(add(scale(t, x), scale(b, y)), scale(n, z))
		if s.blocked(origin, dir, dist, self) {
			hits++
		}
	}
	return 1 - float64(hits)/float64(samples)
}

func (s *occluderSet) blocked(o, d [3]float64, dist float64, self occluderKey) bool {
	for i := range s.tris {
		tri := &s.tris[i]
		if tri.key == self {
			continue
		}
		if t, ok := intersect(o, d, tri); ok && t > 1e-6 && t <= dist {
			return true
		}
	}
	return false
}

// intersect is a two-sided Möller-Trumbore ray/triangle test.
func intersect(o, d [3]float64, tri *occluder) (float64, bool) {
	p := cross(d, tri.e2)
	det := dot(tri.e1, p)
	if math.Abs(det) < 1e-12 {
		return 0, false
	}
	inv := 1 / det
	tv := sub(o, tri.a)
	u := dot(tv, p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := cross(tv, tri.e1)
	v := dot(d, q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	return dot(tri.e2, q) * inv, true
}

// basis returns two unit vectors orthogonal to n and each other.
func basis(n [3]float64) ([3]float64, [3]float64) {
	up := [3]float64{0, 0, 1}
	if math.Abs(n[2]) > 0.9 {
		up = [3]float64{1, 0, 0}
	}
	t := normalize(cross(up, n))
	return t, cross(n, t)
}
