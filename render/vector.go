package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"unicode/utf8"

	"github.com/kacebover/appicon/config"
	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// ErrInvalidSize is returned for non-positive icon dimensions.
var ErrInvalidSize = errors.New("icon dimensions must be positive")

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522848

// probeSize is the font size used to check glyph coverage up front.
const probeSize = 64

// Style describes what Vector draws.
type Style struct {
	Shape       string
	Glyph       string
	Letter      rune
	Background  color.NRGBA
	Foreground  color.NRGBA
	MarginRatio float64
	CornerRatio float64
	LetterRatio float64
}

// StyleFromConfig extracts drawing settings from a validated config.
func StyleFromConfig(cfg *config.IconConfig) Style {
	letter, _ := utf8.DecodeRuneInString(cfg.Letter)
	return Style{
		Shape:       cfg.Shape,
		Glyph:       cfg.Glyph,
		Letter:      letter,
		Background:  cfg.BackgroundColor(),
		Foreground:  cfg.ForegroundColor(),
		MarginRatio: cfg.MarginRatio,
		CornerRatio: cfg.CornerRatio,
		LetterRatio: cfg.LetterRatio,
	}
}

// Vector rasterizes a filled shape with a letter on a transparent canvas.
type Vector struct {
	style    Style
	fonts    *FontChain
	fontName string
}

// NewVector checks that the style can be drawn. For font glyphs this means
// some source in the chain covers the letter.
func NewVector(style Style, fonts *FontChain) (*Vector, error) {
	v := &Vector{style: style, fonts: fonts}
	if style.Glyph != config.GlyphFont {
		return v, nil
	}
	if fonts == nil {
		return nil, errors.Wrap(ErrNoGlyph, "no font chain")
	}

	_, name, err := fonts.Mask(style.Letter, probeSize)
	if err != nil {
		return nil, err
	}
	v.fontName = name
	return v, nil
}

func (v *Vector) Name() string { return config.RendererVector }

// FontName reports the font source picked by the probe, empty for bar glyphs.
func (v *Vector) FontName() string { return v.fontName }

// Render draws the icon and encodes it as PNG.
func (v *Vector) Render(width, height int) ([]byte, error) {
	img, err := v.Draw(width, height)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}

// Draw renders the icon into a new NRGBA image.
func (v *Vector) Draw(width, height int) (*image.NRGBA, error) {
	if width < 1 || height < 1 {
		return nil, errors.Wrapf(ErrInvalidSize, "%dx%d", width, height)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	side := min(width, height)

	v.drawShape(dst, side)

	switch v.style.Glyph {
	case config.GlyphBars:
		v.drawBars(dst, side)
	default:
		if err := v.drawLetter(dst, side); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func (v *Vector) drawShape(dst *image.NRGBA, side int) {
	b := dst.Bounds()
	margin := float32(v.style.MarginRatio * float64(side))
	x0, y0 := margin, margin
	x1, y1 := float32(b.Dx())-margin, float32(b.Dy())-margin
	if x1 <= x0 || y1 <= y0 {
		return
	}

	z := vector.NewRasterizer(b.Dx(), b.Dy())
	switch v.style.Shape {
	case config.ShapeRoundedRect:
		roundedRect(z, x0, y0, x1, y1, float32(v.style.CornerRatio*float64(side)))
	default:
		ellipse(z, (x0+x1)/2, (y0+y1)/2, (x1-x0)/2, (y1-y0)/2)
	}
	z.Draw(dst, b, image.NewUniform(v.style.Background), image.Point{})
}

// drawBars draws an "H" from three rectangles, sized from the icon side.
func (v *Vector) drawBars(dst *image.NRGBA, side int) {
	b := dst.Bounds()
	cx, cy := b.Dx()/2, b.Dy()/2
	barW := side / 12
	barH := side / 3
	gap := side / 6
	if barW < 1 || barH < 1 {
		return
	}

	leftX := cx - gap/2 - barW
	rightX := cx + gap/2

	// Rectangles include their far edge, hence the +1.
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	rect(z, leftX, cy-barH/2, leftX+barW+1, cy+barH/2+1)
	rect(z, rightX, cy-barH/2, rightX+barW+1, cy+barH/2+1)
	rect(z, leftX, cy-barW/2, rightX+barW+1, cy+barW/2+1)
	z.Draw(dst, b, image.NewUniform(v.style.Foreground), image.Point{})
}

func (v *Vector) drawLetter(dst *image.NRGBA, side int) error {
	size := int(v.style.LetterRatio * float64(side))
	mask, _, err := v.fonts.Mask(v.style.Letter, size)
	if err != nil {
		return err
	}

	b := dst.Bounds()
	mb := mask.Bounds()
	off := image.Pt((b.Dx()-mb.Dx())/2, (b.Dy()-mb.Dy())/2)
	r := image.Rectangle{Min: off, Max: off.Add(mb.Size())}
	xdraw.DrawMask(dst, r, image.NewUniform(v.style.Foreground), image.Point{}, mask, mb.Min, xdraw.Over)
	return nil
}

func rect(z *vector.Rasterizer, x0, y0, x1, y1 int) {
	z.MoveTo(float32(x0), float32(y0))
	z.LineTo(float32(x1), float32(y0))
	z.LineTo(float32(x1), float32(y1))
	z.LineTo(float32(x0), float32(y1))
	z.ClosePath()
}

func ellipse(z *vector.Rasterizer, cx, cy, rx, ry float32) {
	kx, ky := kappa*rx, kappa*ry
	z.MoveTo(cx+rx, cy)
	z.CubeTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	z.CubeTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	z.CubeTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	z.CubeTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	z.ClosePath()
}

func roundedRect(z *vector.Rasterizer, x0, y0, x1, y1, r float32) {
	if half := min(x1-x0, y1-y0) / 2; r > half {
		r = half
	}
	if r < 0 {
		r = 0
	}
	k := kappa * r

	z.MoveTo(x0+r, y0)
	z.LineTo(x1-r, y0)
	z.CubeTo(x1-r+k, y0, x1, y0+r-k, x1, y0+r)
	z.LineTo(x1, y1-r)
	z.CubeTo(x1, y1-r+k, x1-r+k, y1, x1-r, y1)
	z.LineTo(x0+r, y1)
	z.CubeTo(x0+r-k, y1, x0, y1-r+k, x0, y1-r)
	z.LineTo(x0, y0+r)
	z.CubeTo(x0, y0+r-k, x0+r-k, y0, x0+r, y0)
	z.ClosePath()
}
