package render

import (
	"image"
	"os"

	"fyne.io/fyne/v2/theme"
	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ErrNoGlyph is returned when no font in the chain covers the requested rune.
var ErrNoGlyph = errors.New("no font in the chain covers the glyph")

// SystemFontPaths are tried after the configured fonts.
var SystemFontPaths = []string{
	"arial.ttf",
	"/System/Library/Fonts/Arial.ttf",
	"/Library/Fonts/Arial.ttf",
	`C:\Windows\Fonts\arial.ttf`,
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
}

// FontSource yields raw TrueType/OpenType bytes.
type FontSource struct {
	Name string
	Load func() ([]byte, error)
}

// FileFont is a FontSource reading from disk.
func FileFont(path string) FontSource {
	return FontSource{
		Name: path,
		Load: func() ([]byte, error) { return os.ReadFile(path) },
	}
}

// BundledFont is the bold text font shipped inside fyne's theme.
func BundledFont() FontSource {
	return FontSource{
		Name: "fyne:" + theme.DefaultTextBoldFont().Name(),
		Load: func() ([]byte, error) { return theme.DefaultTextBoldFont().Content(), nil },
	}
}

// FontChain resolves a glyph against an ordered list of font sources. When
// none of them parses or covers the rune, the 7x13 bitmap face is scaled up.
type FontChain struct {
	sources  []FontSource
	bitmap   bool
	parsed   map[string]*opentype.Font
	rejected map[string]error
}

// NewFontChain builds the default chain: configured paths, system paths,
// the bundled font, then the bitmap face.
func NewFontChain(paths []string) *FontChain {
	sources := make([]FontSource, 0, len(paths)+len(SystemFontPaths)+1)
	for _, p := range paths {
		sources = append(sources, FileFont(p))
	}
	for _, p := range SystemFontPaths {
		sources = append(sources, FileFont(p))
	}
	sources = append(sources, BundledFont())
	return NewFontChainFrom(sources, true)
}

// NewFontChainFrom builds a chain from explicit sources. bitmap enables the
// basicfont last resort.
func NewFontChainFrom(sources []FontSource, bitmap bool) *FontChain {
	return &FontChain{
		sources:  sources,
		bitmap:   bitmap,
		parsed:   make(map[string]*opentype.Font),
		rejected: make(map[string]error),
	}
}

// Mask renders r as a tightly cropped alpha mask. size is the font size in
// pixels. The name of the source that produced the glyph is returned too.
func (fc *FontChain) Mask(r rune, size int) (*image.Alpha, string, error) {
	if size < 1 {
		size = 1
	}

	for _, src := range fc.sources {
		f, err := fc.load(src)
		if err != nil {
			continue
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			continue
		}
		mask, ok := drawGlyph(face, r)
		face.Close()
		if ok {
			return mask, src.Name, nil
		}
	}

	if fc.bitmap {
		if mask, ok := drawGlyph(basicfont.Face7x13, r); ok {
			return scaleMask(mask, size), "basicfont", nil
		}
	}

	return nil, "", errors.Wrapf(ErrNoGlyph, "%q", r)
}

func (fc *FontChain) load(src FontSource) (*opentype.Font, error) {
	if f, ok := fc.parsed[src.Name]; ok {
		return f, nil
	}
	if err, ok := fc.rejected[src.Name]; ok {
		return nil, err
	}

	data, err := src.Load()
	if err == nil {
		var f *opentype.Font
		f, err = opentype.Parse(data)
		if err == nil {
			fc.parsed[src.Name] = f
			return f, nil
		}
	}

	fc.rejected[src.Name] = err
	return nil, err
}

// drawGlyph draws a single rune and crops to its inked pixels.
func drawGlyph(face font.Face, r rune) (*image.Alpha, bool) {
	if _, _, ok := face.GlyphBounds(r); !ok {
		return nil, false
	}

	s := string(r)
	bounds, _ := font.BoundString(face, s)
	rect := image.Rect(
		bounds.Min.X.Floor(), bounds.Min.Y.Floor(),
		bounds.Max.X.Ceil(), bounds.Max.Y.Ceil(),
	)
	if rect.Empty() {
		return nil, false
	}

	canvas := image.NewAlpha(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(-rect.Min.X, -rect.Min.Y),
	}
	d.DrawString(s)

	inked := inkBounds(canvas)
	if inked.Empty() {
		return nil, false
	}
	return canvas.SubImage(inked).(*image.Alpha), true
}

// inkBounds returns the smallest rectangle holding every non-zero pixel.
func inkBounds(m *image.Alpha) image.Rectangle {
	b := m.Bounds()
	ink := image.Rectangle{}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if m.AlphaAt(x, y).A == 0 {
				continue
			}
			ink = ink.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	return ink
}

// scaleMask enlarges a bitmap glyph so its height matches roughly size*0.7,
// which is the cap height of a typical outline font at that size.
func scaleMask(m *image.Alpha, size int) *image.Alpha {
	b := m.Bounds()
	h := size * 7 / 10
	if h < b.Dy() {
		h = b.Dy()
	}
	w := b.Dx() * h / b.Dy()
	if w < 1 {
		w = 1
	}

	dst := image.NewAlpha(image.Rect(0, 0, w, h))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), m, b, xdraw.Src, nil)
	return dst
}
