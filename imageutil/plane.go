package imageutil

// Plane is a single-channel float image stored row-major. Feature
// extraction stays on planes so no stage rounds to 8 bits.
type Plane struct {
	W, H int
	Pix  []float64
}

// NewPlane returns a zeroed w x h plane.
func NewPlane(w, h int) *Plane {
	return &Plane{W: w, H: h, Pix: make([]float64, w*h)}
}

// At returns the value at (x, y), repeating border pixels outside the
// plane.
func (p *Plane) At(x, y int) float64 {
	x = min(max(x, 0), p.W-1)
	y = min(max(y, 0), p.H-1)
	return p.Pix[y*p.W+x]
}

// Set stores v at (x, y).
func (p *Plane) Set(x, y int, v float64) {
	p.Pix[y*p.W+x] = v
}

// Darkness returns 1 - luma/255 per pixel, with BT.601 weights and the
// same integer rounding as OpenCV's BGR2GRAY, so white paper is exactly
// 0 and black ink exactly 1.
func Darkness(img *RGBAImage) *Plane {
	p := NewPlane(img.Width(), img.Height())
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			c := img.RGBAAt(x, y)
			luma := (299*int(c.R) + 587*int(c.G) + 114*int(c.B) + 500) / 1000
			p.Pix[y*p.W+x] = 1 - float64(min(luma, 255))/255
		}
	}
	return p
}

// Kernel is a square convolution kernel of odd Size, row-major.
type Kernel struct {
	Size    int
	Weights []float64
}

var (
	// Gaussian5 approximates a Gaussian with sigma 1.4.
	Gaussian5 = Kernel{Size: 5, Weights: scaled(1.0/159,
		2, 4, 5, 4, 2,
		4, 9, 12, 9, 4,
		5, 12, 15, 12, 5,
		4, 9, 12, 9, 4,
		2, 4, 5, 4, 2,
	)}

	sobelX = Kernel{Size: 3, Weights: []float64{
		-1, 0, 1,
		-2, 0, 2,
		-1, 0, 1,
	}}
	sobelY = Kernel{Size: 3, Weights: []float64{
		-1, -2, -1,
		0, 0, 0,
		1, 2, 1,
	}}
)

func scaled(f float64, w ...float64) []float64 {
	for i := range w {
		w[i] *= f
	}
	return w
}

// Convolve applies k to p with border repetition.
func Convolve(p *Plane, k Kernel) *Plane {
	out := NewPlane(p.W, p.H)
	r := k.Size / 2
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			var sum float64
			for ky := 0; ky < k.Size; ky++ {
				for kx := 0; kx < k.Size; kx++ {
					sum += p.At(x+kx-r, y+ky-r) * k.Weights[ky*k.Size+kx]
				}
			}
			out.Pix[y*p.W+x] = sum
		}
	}
	return out
}

// Blur smooths p with Gaussian5.
func Blur(p *Plane) *Plane {
	return Convolve(p, Gaussian5)
}
