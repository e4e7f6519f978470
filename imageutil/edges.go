package imageutil

import "math"

// Canny hysteresis thresholds on a darkness plane. They match the
// 50/150 gray-level pair that keeps pencil strokes and drops paper
// texture on scanned drawings.
const (
	EdgeLow  = 50.0 / 255
	EdgeHigh = 150.0 / 255
)

// Sobel returns the horizontal and vertical derivatives of p.
func Sobel(p *Plane) (gx, gy *Plane) {
	return Convolve(p, sobelX), Convolve(p, sobelY)
}

// Orientation maps the gradient angle of p onto (0, 1]. Pixels with no
// gradient are 0.
func Orientation(p *Plane) *Plane {
	gx, gy := Sobel(p)
	out := NewPlane(p.W, p.H)
	for i := range out.Pix {
		if gx.Pix[i] == 0 && gy.Pix[i] == 0 {
			continue
		}
		v := (math.Atan2(gy.Pix[i], gx.Pix[i]) + math.Pi) / (2 * math.Pi)
		if v == 0 {
			v = 1
		}
		out.Pix[i] = v
	}
	return out
}

// Edges runs Canny edge detection on p and returns 1 on edge pixels and
// 0 elsewhere. Weak edges survive only when 8-connected to a strong one.
func Edges(p *Plane, low, high float64) *Plane {
	gx, gy := Sobel(Blur(p))
	mag := NewPlane(p.W, p.H)
	for i := range mag.Pix {
		mag.Pix[i] = math.Hypot(gx.Pix[i], gy.Pix[i])
	}
	return trace(suppress(mag, gx, gy), low, high)
}

// gradientSteps are the neighbour offsets along the gradient for the
// 0, 45, 90 and 135 degree sectors.
var gradientSteps = [4][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}}

// suppress keeps only magnitudes that peak along their gradient
// direction. The border row and column stay zero.
func suppress(mag, gx, gy *Plane) *Plane {
	out := NewPlane(mag.W, mag.H)
	for y := 1; y < mag.H-1; y++ {
		for x := 1; x < mag.W-1; x++ {
			i := y*mag.W + x
			deg := math.Atan2(gy.Pix[i], gx.Pix[i]) * 180 / math.Pi
			if deg < 0 {
				deg += 180
			}
			step := gradientSteps[int((deg+22.5)/45)%4]
			m := mag.Pix[i]
			if m >= mag.At(x+step[0], y+step[1]) && m >= mag.At(x-step[0], y-step[1]) {
				out.Pix[i] = m
			}
		}
	}
	return out
}

// trace marks strong pixels and flood-fills into connected weak ones.
func trace(mag *Plane, low, high float64) *Plane {
	out := NewPlane(mag.W, mag.H)
	var stack []int
	for i, v := range mag.Pix {
		if v >= high {
			out.Pix[i] = 1
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%mag.W, i/mag.W
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 1 || ny < 1 || nx >= mag.W-1 || ny >= mag.H-1 {
					continue
				}
				j := ny*mag.W + nx
				if out.Pix[j] == 0 && mag.Pix[j] >= low {
					out.Pix[j] = 1
					stack = append(stack, j)
				}
			}
		}
	}
	return out
}
