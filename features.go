package img2aa

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// FeatureMaps is the multi-channel description of a source drawing.
// All channels are row-major Width*Height buffers with values in [0, 1].
// The engine never mutates a FeatureMaps.
type FeatureMaps struct {
	Width, Height int
	// Ink is the connectivity map used for residual tracking.
	Ink         []float32
	Orientation []float32
	Density     []float32
	// Paint holds optional paint-derived channels.
	Paint [][]float32
}

// NewFeatureMaps allocates empty ink, orientation and density channels.
func NewFeatureMaps(width, height int) *FeatureMaps {
	return &FeatureMaps{
		Width:       width,
		Height:      height,
		Ink:         make([]float32, width*height),
		Orientation: make([]float32, width*height),
		Density:     make([]float32, width*height),
	}
}

// SetInk sets the ink channel at (x, y), ignoring out of range points.
func (f *FeatureMaps) SetInk(x, y int, v float32) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	f.Ink[y*f.Width+x] = v
}

// Patch channel indices.
const (
	ChannelInk = iota
	ChannelOrientation
	ChannelDensity
	ChannelContext
	ChannelAbove
	ChannelBelow
	NumChannels
)

// Patch is a fixed-size, multi-channel recognition input.
type Patch struct {
	Width, Height int
	Channels      [][]float32
}

// raster is a single float channel used for line bands, glyph bitmaps,
// rendered context and residual ink.
type raster struct {
	w, h int
	pix  []float32
}

func newRaster(w, h int) *raster {
	return &raster{w: w, h: h, pix: make([]float32, w*h)}
}

func (r *raster) at(x, y int) float32 {
	if r == nil || x < 0 || y < 0 || x >= r.w || y >= r.h {
		return 0
	}
	return r.pix[y*r.w+x]
}

func (r *raster) set(x, y int, v float32) {
	if x < 0 || y < 0 || x >= r.w || y >= r.h {
		return
	}
	r.pix[y*r.w+x] = v
}

func (r *raster) clone() *raster {
	if r == nil {
		return nil
	}
	c := &raster{w: r.w, h: r.h, pix: make([]float32, len(r.pix))}
	copy(c.pix, r.pix)
	return c
}

// stamp writes max(existing, glyph) with the glyph's origin at x.
func (r *raster) stamp(g *raster, x int) {
	for gy := 0; gy < g.h && gy < r.h; gy++ {
		for gx := 0; gx < g.w; gx++ {
			v := g.pix[gy*g.w+gx]
			if v == 0 {
				continue
			}
			if v > r.at(x+gx, gy) {
				r.set(x+gx, gy, v)
			}
		}
	}
}

// gray converts the raster into an 8-bit image.
func (r *raster) gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, r.w, r.h))
	for i, v := range r.pix {
		img.Pix[i] = uint8(math.Round(float64(clamp01(v)) * 255))
	}
	return img
}

func rasterFromGray(img *image.Gray) *raster {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	r := newRaster(b.Dx(), b.Dy())
	for y := 0; y < r.h; y++ {
		for x := 0; x < r.w; x++ {
			r.pix[y*r.w+x] = float32(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y) / 255
		}
	}
	return r
}

// bandOf copies rows [top, top+h) of a feature channel.
func bandOf(ch []float32, width, height, top, h int) *raster {
	r := newRaster(width, h)
	if ch == nil {
		return r
	}
	for y := 0; y < h; y++ {
		sy := top + y
		if sy < 0 || sy >= height {
			continue
		}
		copy(r.pix[y*width:(y+1)*width], ch[sy*width:(sy+1)*width])
	}
	return r
}

// lineBand is the read-only view of one scan line handed to the decoder.
type lineBand struct {
	top, height int
	width       int
	origin      int
	ink         *raster
	orientation *raster
	density     *raster
	above       *raster
	below       *raster
}

func newLineBand(f *FeatureMaps, centerY, lineHeight, origin int) *lineBand {
	top := centerY - lineHeight/2
	return &lineBand{
		top:         top,
		height:      lineHeight,
		width:       f.Width,
		origin:      origin,
		ink:         bandOf(f.Ink, f.Width, f.Height, top, lineHeight),
		orientation: bandOf(f.Orientation, f.Width, f.Height, top, lineHeight),
		density:     bandOf(f.Density, f.Width, f.Height, top, lineHeight),
	}
}

// meanInk is the mean ink over columns [x, x+w) of the band.
func meanInk(ink *raster, x, w int) float64 {
	if w <= 0 || ink == nil {
		return 0
	}
	var sum float64
	for y := 0; y < ink.h; y++ {
		for dx := 0; dx < w; dx++ {
			sum += float64(ink.at(x+dx, y))
		}
	}
	return sum / float64(w*ink.h)
}

// nextInkColumn returns the first column at or after x whose ink mass
// reaches mass, or limit and false when there is none before limit.
func nextInkColumn(ink *raster, x, limit int, mass float64) (int, bool) {
	if x < 0 {
		x = 0
	}
	for cx := x; cx < limit && cx < ink.w; cx++ {
		var sum float64
		for y := 0; y < ink.h; y++ {
			sum += float64(ink.pix[y*ink.w+cx])
		}
		if sum >= mass {
			return cx, true
		}
	}
	return limit, false
}

// patchSampler crops and resamples band channels into model patches.
type patchSampler struct {
	window, context int
	outW, outH      int
}

func (s patchSampler) sample(channels []*raster, x0 int) Patch {
	p := Patch{Width: s.outW, Height: s.outH, Channels: make([][]float32, len(channels))}
	for i, ch := range channels {
		p.Channels[i] = s.resample(ch, x0)
	}
	return p
}

func (s patchSampler) resample(ch *raster, x0 int) []float32 {
	out := make([]float32, s.outW*s.outH)
	if ch == nil {
		return out
	}
	src := image.NewGray(image.Rect(0, 0, s.window, ch.h))
	empty := true
	for y := 0; y < ch.h; y++ {
		for x := 0; x < s.window; x++ {
			v := ch.at(x0+x, y)
			if v != 0 {
				empty = false
			}
			src.Pix[y*src.Stride+x] = uint8(math.Round(float64(clamp01(v)) * 255))
		}
	}
	if empty {
		return out
	}
	dst := image.NewGray(image.Rect(0, 0, s.outW, s.outH))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	for i, v := range dst.Pix {
		out[i] = float32(v) / 255
	}
	return out
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
