package soft

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host"
)

// SaveImage writes img as PNG. Float images are written at 16 bits per
// channel, others at 8. On success img.Path is set.
func (h *Host) SaveImage(img *host.Image, path string) error {
	depth := 8
	if img.Float {
		depth = 16
	}
	if err := writePNG(img, path, depth, true, h.output.Compression); err != nil {
		return err
	}
	img.Path = path
	h.logger.Debug("image saved", "name", img.Name, "path", path, "depth", depth)
	return nil
}

// LoadImage reads an image file. 16-bit sources load as float images.
func (h *Host) LoadImage(path string, cs host.ColorSpace) (*host.Image, error) {
	src, err := imaging.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "image %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode image %s", path)
	}
	b := src.Bounds()
	float := false
	switch src.(type) {
	case *image.NRGBA64, *image.RGBA64, *image.Gray16:
		float = true
	}
	img := host.NewImage(filepath.Base(path), b.Dx(), b.Dy(), cs, float)
	img.Path = path
	for y := range b.Dy() {
		for x := range b.Dx() {
			c := color.NRGBA64Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			img.Set(x, y, [4]float32{
				float32(c.R) / 0xffff,
				float32(c.G) / 0xffff,
				float32(c.B) / 0xffff,
				float32(c.A) / 0xffff,
			})
		}
	}
	return img, nil
}

func writePNG(img *host.Image, path string, depth int, alpha bool, compression int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create directory for %s", path)
	}
	var out image.Image
	if depth == 16 {
		dst := image.NewNRGBA64(image.Rect(0, 0, img.Width, img.Height))
		for y := range img.Height {
			for x := range img.Width {
				c := img.At(x, y)
				a := uint16(quantize(c[3], 0xffff))
				if !alpha {
					a = 0xffff
				}
				dst.SetNRGBA64(x, y, color.NRGBA64{
					R: uint16(quantize(c[0], 0xffff)),
					G: uint16(quantize(c[1], 0xffff)),
					B: uint16(quantize(c[2], 0xffff)),
					A: a,
				})
			}
		}
		out = dst
	} else {
		dst := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
		for y := range img.Height {
			for x := range img.Width {
				c := img.At(x, y)
				a := uint8(quantize(c[3], 0xff))
				if !alpha {
					a = 0xff
				}
				dst.SetNRGBA(x, y, color.NRGBA{
					R: uint8(quantize(c[0], 0xff)),
					G: uint8(quantize(c[1], 0xff)),
					B: uint8(quantize(c[2], 0xff)),
					A: a,
				})
			}
		}
		out = dst
	}
	if err := imaging.Save(out, path, imaging.PNGCompressionLevel(pngLevel(compression))); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

func quantize(v float32, maxv float64) uint32 {
	f := math.Round(math.Max(0, math.Min(1, float64(v))) * maxv)
	return uint32(f)
}

// pngLevel maps a 0-100 compression percentage onto the encoder presets.
func pngLevel(pct int) png.CompressionLevel {
	switch {
	case pct <= 0:
		return png.NoCompression
	case pct <= 30:
		return png.BestSpeed
	case pct <= 70:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}
