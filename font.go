package img2aa

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"unicode"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ReferenceFontID identifies the built-in font the classifier backend
// was trained on.
const ReferenceFontID = "basicfont-7x13"

// Whitespace glyphs with fixed metrics table entries.
const (
	HalfSpace = ' '
	FullSpace = '\u3000'
	ThinSpace = '\u2009'
)

// Font pairs a face with a stable identity used for mode selection and
// glyph database matching.
type Font struct {
	ID   string
	Face font.Face
}

// ReferenceFont returns the engine's built-in reference font.
func ReferenceFont() Font {
	return Font{ID: ReferenceFontID, Face: basicfont.Face7x13}
}

// LoadTrueTypeFont parses a TrueType file and builds a face at size
// points (72 DPI, so points equal pixels).
func LoadTrueTypeFont(path string, size float64) (Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Font{}, fmt.Errorf("read font %s: %w", path, err)
	}
	ttf, err := freetype.ParseFont(data)
	if err != nil {
		return Font{}, fmt.Errorf("parse font %s: %w", path, err)
	}
	face := truetype.NewFace(ttf, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	return Font{
		ID:   fmt.Sprintf("%s@%g", filepath.Base(path), size),
		Face: face,
	}, nil
}

// Advance returns the advance width of r in pixels.
func (f Font) Advance(r rune) (float64, bool) {
	if f.Face == nil {
		return 0, false
	}
	adv, ok := f.Face.GlyphAdvance(r)
	if !ok {
		return 0, false
	}
	return float64(adv) / 64, true
}

// LineHeight is the pixel height of one text line.
func (f Font) LineHeight() int {
	if f.Face == nil {
		return 0
	}
	m := f.Face.Metrics()
	return (m.Ascent + m.Descent).Ceil()
}

func isSpace(r rune) bool {
	return r == HalfSpace || r == FullSpace || r == ThinSpace || unicode.IsSpace(r)
}

// renderGlyph rasterizes r into a coverage bitmap one advance wide and
// one line high. Whitespace renders empty.
func renderGlyph(f Font, r rune, advance float64) *raster {
	w := int(advance + 0.999)
	if w < 1 {
		w = 1
	}
	h := f.LineHeight()
	out := newRaster(w, h)
	if isSpace(r) {
		return out
	}

	// Alpha keeps the anti-aliased coverage of TrueType faces.
	img := image.NewAlpha(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: f.Face,
		Dot:  fixed.Point26_6{X: 0, Y: f.Face.Metrics().Ascent},
	}
	d.DrawString(string(r))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.pix[y*w+x] = float32(img.AlphaAt(x, y).A) / 255
		}
	}
	return out
}
