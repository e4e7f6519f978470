package imageutil

import (
	"image/color"
	"math"
)

var (
	white = RGB{R: 255, G: 255, B: 255}
	black = RGB{}
)

// CreateGradientImage creates a horizontal gradient test image.
func CreateGradientImage(width, height int) *RGBAImage {
	img := NewRGBAImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(255 * x / (width - 1))
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// CreateSolidImage creates a solid color image.
func CreateSolidImage(width, height int, c RGB) *RGBAImage {
	img := NewRGBAImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGB(x, y, c)
		}
	}
	return img
}

// CreateLineArtImage creates a white page with a one pixel black
// vertical stroke every spacing columns and a horizontal stroke through
// the middle row.
func CreateLineArtImage(width, height, spacing int) *RGBAImage {
	img := CreateSolidImage(width, height, white)
	for x := spacing; x < width; x += spacing {
		for y := 0; y < height; y++ {
			img.SetRGB(x, y, black)
		}
	}
	for x := 0; x < width; x++ {
		img.SetRGB(x, height/2, black)
	}
	return img
}

// CreatePaintedImage creates a white page whose left half is painted c.
func CreatePaintedImage(width, height int, c RGB) *RGBAImage {
	img := CreateSolidImage(width, height, white)
	for y := 0; y < height; y++ {
		for x := 0; x < width/2; x++ {
			img.SetRGB(x, y, c)
		}
	}
	return img
}

// CreateEdgeImage creates an image with sharp edges for testing edge detection.
func CreateEdgeImage(width, height int) *RGBAImage {
	img := CreateSolidImage(width, height, RGB{R: 128, G: 128, B: 128})
	for y := height / 4; y < 3*height/4; y++ {
		for x := width / 4; x < 3*width/4; x++ {
			img.SetRGB(x, y, white)
		}
	}
	return img
}

// CalculateMSE calculates the Mean Squared Error between two RGBA images.
func CalculateMSE(img1, img2 *RGBAImage) float64 {
	if img1.Width() != img2.Width() || img1.Height() != img2.Height() {
		return math.MaxFloat64
	}

	width, height := img1.Width(), img1.Height()
	var sumSq float64
	count := float64(width * height * 3)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c1 := img1.RGBAAt(x, y)
			c2 := img2.RGBAAt(x, y)
			dr := float64(c1.R) - float64(c2.R)
			dg := float64(c1.G) - float64(c2.G)
			db := float64(c1.B) - float64(c2.B)
			sumSq += dr*dr + dg*dg + db*db
		}
	}

	return sumSq / count
}
