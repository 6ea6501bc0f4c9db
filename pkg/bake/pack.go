package bake

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host"
	"github.com/matzehuels/texbake/pkg/observability"
)

// PackingSettings are the output settings in force while packing: no view
// transform, 8-bit RGBA PNG.
var PackingSettings = host.OutputSettings{
	ViewTransform: "Standard",
	FileFormat:    "PNG",
	ColorMode:     "RGBA",
	ColorDepth:    8,
	Compression:   15,
}

// Packer composites roughness and metallic into one texture:
// R = 1, G = roughness, B = metallic, A = 1.
type Packer struct {
	comp   host.Compositor
	logger *log.Logger
}

// NewPacker creates a packer over the host compositor.
func NewPacker(comp host.Compositor, logger *log.Logger) *Packer {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Packer{comp: comp, logger: logger}
}

// Pack writes the packed texture for scope to path and returns it,
// registered with the host under name. Both sources are switched to
// Non-Color first. The host's output settings are replaced by
// [PackingSettings] for the duration and restored on every path.
func (p *Packer) Pack(ctx context.Context, name, scope string, rough, metal *host.Image, path string) (img *host.Image, err error) {
	if rough == nil || metal == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "pack %s: roughness and metallic are both required", name)
	}
	if rough.Width != metal.Width || rough.Height != metal.Height {
		return nil, errors.New(errors.ErrCodeResolutionMismatch,
			"pack %s: roughness is %dx%d, metallic is %dx%d",
			name, rough.Width, rough.Height, metal.Width, metal.Height)
	}
	rough.ColorSpace = host.NonColor
	metal.ColorSpace = host.NonColor

	start := time.Now()
	defer func() {
		observability.Bake().OnPack(ctx, scope, path, time.Since(start), err)
	}()

	saved := p.comp.OutputSettings()
	p.comp.SetOutputSettings(PackingSettings)
	defer p.comp.SetOutputSettings(saved)

	img, err = p.comp.RenderComposite(ctx, host.CompositeJob{
		Name:   name,
		Width:  rough.Width,
		Height: rough.Height,
		Channels: [4]host.ChannelSource{
			{Constant: 1},
			{Image: rough, Channel: 0},
			{Image: metal, Channel: 0},
			{Constant: 1},
		},
	}, path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBakeFailed, err, "pack %s", name)
	}
	p.logger.Debug("packed metallic-roughness", "image", name, "path", path)
	return img, nil
}
