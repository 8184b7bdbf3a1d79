// Package render draws placeholder icons. There are two strategies: Vector
// rasterizes a coloured shape with a letter, and Fallback emits a
// hand-assembled transparent PNG. Select picks one of them once per run.
package render

import (
	"github.com/kacebover/appicon/config"
	"github.com/kacebover/appicon/pngasm"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrUnknownMode is returned for a renderer mode Select does not know.
var ErrUnknownMode = errors.New("unknown renderer mode")

// Renderer turns a pixel size into encoded PNG bytes.
type Renderer interface {
	Name() string
	Render(width, height int) ([]byte, error)
}

// Fallback renders fully transparent images through the PNG assembler. It
// draws no shape or glyph.
type Fallback struct {
	asm *pngasm.Assembler
}

// NewFallback returns a Fallback compressing at the given zlib level.
func NewFallback(level int) *Fallback {
	return &Fallback{asm: pngasm.NewAssembler(level)}
}

func (f *Fallback) Name() string { return config.RendererFallback }

func (f *Fallback) Render(width, height int) ([]byte, error) {
	return f.asm.Assemble(width, height)
}

// Select probes for the rich drawing capability and returns the strategy for
// the whole run. In auto mode a failed probe degrades to Fallback with a
// warning. An explicit vector mode surfaces the probe error instead.
func Select(cfg *config.IconConfig, fonts *FontChain, logger *zap.Logger) (Renderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Renderer {
	case config.RendererFallback:
		return NewFallback(cfg.CompressionLevel), nil
	case config.RendererVector, config.RendererAuto, "":
	default:
		return nil, errors.Wrapf(ErrUnknownMode, "%q", cfg.Renderer)
	}

	if fonts == nil {
		fonts = NewFontChain(cfg.FontPaths)
	}
	v, err := NewVector(StyleFromConfig(cfg), fonts)
	if err == nil {
		return v, nil
	}
	if cfg.Renderer == config.RendererVector {
		return nil, errors.Wrap(err, "vector renderer unavailable")
	}

	logger.Warn("Rich rendering unavailable, using transparent fallback",
		zap.Error(err),
		zap.String("letter", cfg.Letter),
	)
	return NewFallback(cfg.CompressionLevel), nil
}
