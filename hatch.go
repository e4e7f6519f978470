package img2aa

import (
	"image"
	"image/color"
)

// NextHatch returns the pattern character following last, wrapping to
// the first character when last is the final character or absent. An
// empty pattern yields nothing.
func NextHatch(pattern string, last rune) (rune, bool) {
	runes := []rune(pattern)
	if len(runes) == 0 {
		return 0, false
	}
	for i, r := range runes {
		if r == last {
			return runes[(i+1)%len(runes)], true
		}
	}
	return runes[0], true
}

type paintColor int

const (
	paintNone paintColor = iota
	paintBlue
	paintRed
)

// samplePaint classifies the paint mask pixel at (x, y).
func samplePaint(mask image.Image, x, y int, minAlpha uint8) paintColor {
	if mask == nil {
		return paintNone
	}
	b := mask.Bounds()
	pt := image.Pt(b.Min.X+x, b.Min.Y+y)
	if !pt.In(b) {
		return paintNone
	}
	c := color.NRGBAModel.Convert(mask.At(pt.X, pt.Y)).(color.NRGBA)
	if c.A < minAlpha {
		return paintNone
	}
	switch {
	case c.B > c.R && c.B > c.G:
		return paintBlue
	case c.R > c.G && c.R > c.B:
		return paintRed
	}
	return paintNone
}
