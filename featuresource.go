package img2aa

import (
	"image"

	"github.com/wbrown/img2aa/imageutil"
)

// FeatureOptions controls FeaturesFromImage.
type FeatureOptions struct {
	// Width resizes the drawing to this many pixels. Zero keeps the
	// source size.
	Width int
	// Edges uses Canny edges as ink instead of darkness, for photos and
	// shaded drawings.
	Edges bool
}

// FeaturesFromImage derives feature maps from a drawing. Strongly blue
// or red pixels are treated as paint: they are removed from the ink and
// returned as a paint mask in feature coordinates.
//
// Channels:
//   - Ink: darkness (or Canny edges), 1 is full ink
//   - Orientation: Sobel gradient angle of darkness mapped to (0, 1], 0 where flat
//   - Density: Gaussian-blurred ink
//   - Paint: blue and red paint coverage
func FeaturesFromImage(img image.Image, opts FeatureOptions) (*FeatureMaps, *image.RGBA) {
	art, paint := imageutil.PrepareForTracing(imageutil.RGBAImageFromImage(img), opts.Width)
	dark := imageutil.Darkness(art)
	w, h := dark.W, dark.H
	f := NewFeatureMaps(w, h)

	ink := dark
	if opts.Edges {
		ink = imageutil.Edges(dark, imageutil.EdgeLow, imageutil.EdgeHigh)
	}
	orientation := imageutil.Orientation(dark)
	density := imageutil.Blur(ink)
	for i := range ink.Pix {
		f.Ink[i] = float32(ink.Pix[i])
		f.Orientation[i] = float32(orientation.Pix[i])
		f.Density[i] = clamp01(float32(density.Pix[i]))
	}

	blue := make([]float32, w*h)
	red := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := paint.RGBAAt(x, y)
			if c.A == 0 {
				continue
			}
			if c.B > c.R {
				blue[y*w+x] = 1
			} else {
				red[y*w+x] = 1
			}
		}
	}
	f.Paint = [][]float32{blue, red}
	return f, paint.RGBA
}
