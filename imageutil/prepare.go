package imageutil

import (
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// PaintSaturation is the minimum spread between the strongest and
// weakest channel for a pixel to count as paint rather than line art.
const PaintSaturation = 96

// PrepareForTracing prepares a drawing for transcription.
//
// The function:
//  1. Resizes to width pixels, keeping the aspect ratio (no-op when
//     width is zero or already matches)
//  2. Moves strongly blue or red pixels into a separate paint overlay
//  3. Whitens those pixels in the line art so paint never reads as ink
//
// Parameters:
//   - img: The input image
//   - width: Target width in pixels
//
// Returns:
//   - art: The line art at the target size
//   - paint: An overlay, transparent except where paint was found
func PrepareForTracing(img *RGBAImage, width int) (art, paint *RGBAImage) {
	art = img
	if width > 0 && width != img.Width() {
		height := int(math.Round(float64(img.Height()) * float64(width) / float64(img.Width())))
		if height < 1 {
			height = 1
		}
		art = NewRGBAImage(width, height)
		draw.CatmullRom.Scale(art.RGBA, art.Bounds(), img.RGBA, img.Bounds(), draw.Src, nil)
	} else {
		art = img.Clone()
	}

	paint = NewRGBAImage(art.Width(), art.Height())
	for y := 0; y < art.Height(); y++ {
		for x := 0; x < art.Width(); x++ {
			c := art.RGBAAt(x, y)
			if !isPaint(c) {
				continue
			}
			paint.SetRGBA(x, y, c)
			art.SetRGB(x, y, RGB{R: 255, G: 255, B: 255})
		}
	}
	return art, paint
}

func isPaint(c color.RGBA) bool {
	hi := max(c.R, c.G, c.B)
	lo := min(c.R, c.G, c.B)
	if int(hi)-int(lo) < PaintSaturation {
		return false
	}
	return (c.B == hi && c.B > c.R && c.B > c.G) || (c.R == hi && c.R > c.G && c.R > c.B)
}
