package soft

import (
	"context"
	"time"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host"
	"github.com/matzehuels/texbake/pkg/shader"
)

// Bake runs one bake pass over the selected objects. Each material slot
// whose active node is a bound image texture receives the texels of the
// triangles assigned to that slot. Slots without a destination are skipped;
// a pass that writes nothing fails.
//
// For [host.QuantityAO], only the selected objects occlude.
func (h *Host) Bake(ctx context.Context, req host.BakeRequest) error {
	if len(req.Selection.Objects) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "bake: empty selection")
	}
	switch req.Quantity {
	case host.QuantityEmit, host.QuantityNormal, host.QuantityAO:
	default:
		return errors.New(errors.ErrCodeUnsupported, "bake quantity %q", req.Quantity)
	}

	objs := make([]*object, 0, len(req.Selection.Objects))
	for _, id := range req.Selection.Objects {
		o, err := h.mesh(id)
		if err != nil {
			return err
		}
		if len(o.mesh.UVs) != len(o.mesh.Triangles) || len(o.mesh.UVs) == 0 {
			return errors.New(errors.ErrCodeBakeFailed, "object %q has no UV map", id)
		}
		objs = append(objs, o)
	}

	var occluders *occluderSet
	if req.Quantity == host.QuantityAO {
		occluders = newOccluderSet(objs)
	}
	margin := req.Margin
	if margin <= 0 {
		margin = h.margin
	}

	start := time.Now()
	targets := 0
	for oi, o := range objs {
		if err := ctx.Err(); err != nil {
			return err
		}
		for slot, mat := range o.materials {
			img, ok := h.destination(mat)
			if !ok {
				continue
			}
			written := make([]bool, img.Width*img.Height)
			ev := &evaluator{images: h.images, g: mat.Graph}
			for ti, t := range o.mesh.Triangles {
				if o.mesh.slot(ti) != slot {
					continue
				}
				pos := [3][3]float64{o.mesh.Positions[t[0]], o.mesh.Positions[t[1]], o.mesh.Positions[t[2]]}
				nrm := normalize(cross(sub(pos[1], pos[0]), sub(pos[2], pos[0])))
				uvs := o.mesh.UVs[ti]
				rasterizeUV(img.Width, img.Height, uvs, func(x, y int, b [3]float64) {
					ev.s = sample{uv: interp2(uvs, b), pos: interp3(pos, b), normal: nrm}
					var c [4]float64
					switch req.Quantity {
					case host.QuantityEmit:
						c = ev.emit()
					case host.QuantityNormal:
						c = ev.normal()
					case host.QuantityAO:
						ao := occluders.ambient(ev.s.pos, nrm, occluderKey{obj: oi, tri: ti}, h.aoSamples, h.aoDistance)
						c = [4]float64{ao, ao, ao, 1}
					}
					if img.ColorSpace == host.SRGB {
						for k := range 3 {
							c[k] = srgbEncode(c[k])
						}
					}
					img.Set(x, y, [4]float32{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])})
					written[y*img.Width+x] = true
				})
			}
			cov := h.covered[img.Name]
			if len(cov) != len(written) {
				cov = make([]bool, len(written))
				h.covered[img.Name] = cov
			}
			dilate(img.Width, img.Height, img.Pix, cov, written, margin)
			for i, w := range written {
				if w {
					cov[i] = true
				}
			}
			targets++
		}
	}
	if targets == 0 {
		return errors.New(errors.ErrCodeBakeFailed, "bake %s: no material has an active image texture", req.Quantity)
	}
	h.logger.Debug("bake complete",
		"quantity", req.Quantity, "objects", len(objs), "targets", targets,
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// destination returns the image bound to the material's active image node.
func (h *Host) destination(mat *shader.Material) (*host.Image, bool) {
	n, ok := mat.Graph.Active()
	if !ok || n.Kind != shader.KindImageTexture || n.Image == "" {
		return nil, false
	}
	img, ok := h.images[n.Image]
	return img, ok
}
