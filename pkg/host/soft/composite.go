package soft

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host"
)

// ViewStandard disables the view tone curve.
const ViewStandard = "Standard"

// OutputSettings returns the current render output settings.
func (h *Host) OutputSettings() host.OutputSettings { return h.output }

// SetOutputSettings replaces the render output settings.
func (h *Host) SetOutputSettings(s host.OutputSettings) { h.output = s }

// RenderComposite assembles an image channel by channel and writes it to
// path using the current output settings. Sources tagged sRGB are decoded
// to linear before their channel is read. Unless the view transform is
// Standard, color channels pass through a filmic tone curve. The result is
// registered under job.Name and returned with the quantization of the
// written file.
func (h *Host) RenderComposite(ctx context.Context, job host.CompositeJob, path string) (*host.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if job.Width <= 0 || job.Height <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidResolution, "composite size %dx%d", job.Width, job.Height)
	}
	if f := strings.ToUpper(h.output.FileFormat); f != "" && f != "PNG" {
		return nil, errors.New(errors.ErrCodeUnsupported, "output format %q", h.output.FileFormat)
	}
	for i, ch := range job.Channels {
		if ch.Image == nil {
			continue
		}
		if ch.Image.Width != job.Width || ch.Image.Height != job.Height {
			return nil, errors.New(errors.ErrCodeResolutionMismatch,
				"channel %d source %q is %dx%d, composite is %dx%d",
				i, ch.Image.Name, ch.Image.Width, ch.Image.Height, job.Width, job.Height)
		}
		if ch.Channel < 0 || ch.Channel > 3 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "channel %d: source channel %d", i, ch.Channel)
		}
	}

	name := job.Name
	if name == "" {
		name = filepath.Base(path)
	}
	depth := h.output.ColorDepth
	if depth != 16 {
		depth = 8
	}
	alpha := strings.ToUpper(h.output.ColorMode) == "RGBA"
	tone := h.output.ViewTransform != ViewStandard

	img := host.NewImage(name, job.Width, job.Height, host.NonColor, depth == 16)
	levels := float64(0xff)
	if depth == 16 {
		levels = 0xffff
	}
	for y := range job.Height {
		for x := range job.Width {
			var c [4]float32
			for k, ch := range job.Channels {
				v := float64(ch.Constant)
				if ch.Image != nil {
					v = float64(ch.Image.At(x, y)[ch.Channel])
					if ch.Image.ColorSpace == host.SRGB && ch.Channel < 3 {
						v = srgbDecode(v)
					}
				}
				if tone && k < 3 {
					v = filmic(v)
				}
				if k == 3 && !alpha {
					v = 1
				}
				c[k] = float32(float64(quantize(float32(v), levels)) / levels)
			}
			img.Set(x, y, c)
		}
	}

	if err := writePNG(img, path, depth, alpha, h.output.Compression); err != nil {
		return nil, err
	}
	img.Path = path
	h.images[name] = img
	h.covered[name] = make([]bool, job.Width*job.Height)
	h.logger.Debug("composite rendered", "path", path, "view", h.output.ViewTransform, "depth", depth)
	return img, nil
}

// filmic is a soft-shoulder tone curve with filmic(0)=0 and a compressed
// highlight range.
func filmic(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return v * (1 + v/4) / (1 + v)
}
