package soft

import "math"

// rasterizeUV calls fn for every texel of a w×h image whose center lies in
// the UV triangle, with the texel's barycentric weights. UV v points up;
// image row 0 is the top.
func rasterizeUV(w, h int, uv [3][2]float64, fn func(x, y int, bary [3]float64)) {
	var px [3][2]float64
	for k := range 3 {
		px[k] = [2]float64{uv[k][0] * float64(w), (1 - uv[k][1]) * float64(h)}
	}
	area := edge(px[0], px[1], px[2])
	if math.Abs(area) < 1e-12 {
		return
	}
	minX := max(0, int(math.Floor(min(px[0][0], px[1][0], px[2][0]))))
	maxX := min(w-1, int(math.Ceil(max(px[0][0], px[1][0], px[2][0]))))
	minY := max(0, int(math.Floor(min(px[0][1], px[1][1], px[2][1]))))
	maxY := min(h-1, int(math.Ceil(max(px[0][1], px[1][1], px[2][1]))))

	const eps = -1e-9
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := [2]float64{float64(x) + 0.5, float64(y) + 0.5}
			b0 := edge(px[1], px[2], p) / area
			b1 := edge(px[2], px[0], p) / area
			b2 := edge(px[0], px[1], p) / area
			if b0 < eps || b1 < eps || b2 < eps {
				continue
			}
			fn(x, y, [3]float64{b0, b1, b2})
		}
	}
}

func edge(a, b, p [2]float64) float64 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

func interp3(v [3][3]float64, b [3]float64) [3]float64 {
	return add(add(scale(v[0], b[0]), scale(v[1], b[1])), scale(v[2], b[2]))
}

func interp2(v [3][2]float64, b [3]float64) [2]float64 {
	return [2]float64{
		v[0][0]*b[0] + v[1][0]*b[1] + v[2][0]*b[2],
		v[0][1]*b[0] + v[1][1]*b[1] + v[2][1]*b[2],
	}
}

// dilate grows written texels outward by up to margin rings into texels
// that no bake has covered, so filtering does not bleed background in.
func dilate(w, h int, pix []float32, covered, written []bool, margin int) {
	filled := make([]bool, len(written))
	copy(filled, written)
	for range margin {
		var ring []int
		var src []int
		for y := range h {
			for x := range w {
				i := y*w + x
				if filled[i] || covered[i] {
					continue
				}
				for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
					nx, ny := x+d[0], y+d[1]
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					if j := ny*w + nx; filled[j] {
						ring = append(ring, i)
						src = append(src, j)
						break
					}
				}
			}
		}
		if len(ring) == 0 {
			return
		}
		for k, i := range ring {
			copy(pix[i*4:i*4+4], pix[src[k]*4:src[k]*4+4])
			filled[i] = true
		}
	}
}

func srgbEncode(v float64) float64 {
	if v <= 0.0031308 {
		return math.Max(0, 12.92*v)
	}
	return 1.055*math.Pow(v, 1/2.4) - 0.055
}

func srgbDecode(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}
