// Package imageutil turns source drawings into the float planes the
// transcription engine derives its features from: darkness, Canny
// edges, gradient orientation and blurred density, plus the blue and red
// paint overlay used for hatching.
package imageutil

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// RGB is an opaque 8-bit color.
type RGB struct {
	R, G, B uint8
}

// RGBAImage is a drawing anchored at the origin.
type RGBAImage struct {
	*image.RGBA
}

// NewRGBAImage returns a transparent width x height image.
func NewRGBAImage(width, height int) *RGBAImage {
	return &RGBAImage{RGBA: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// RGBAImageFromImage copies img into a new image whose bounds start at
// the origin.
func RGBAImageFromImage(img image.Image) *RGBAImage {
	b := img.Bounds()
	out := NewRGBAImage(b.Dx(), b.Dy())
	draw.Draw(out.RGBA, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func (img *RGBAImage) Width() int  { return img.Bounds().Dx() }
func (img *RGBAImage) Height() int { return img.Bounds().Dy() }

// GetRGB returns the color at (x, y) without alpha.
func (img *RGBAImage) GetRGB(x, y int) RGB {
	c := img.RGBAAt(x, y)
	return RGB{R: c.R, G: c.G, B: c.B}
}

// SetRGB paints (x, y) opaque c.
func (img *RGBAImage) SetRGB(x, y int, c RGB) {
	img.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
}

// Clone returns a deep copy.
func (img *RGBAImage) Clone() *RGBAImage {
	out := NewRGBAImage(img.Width(), img.Height())
	copy(out.Pix, img.Pix)
	return out
}
