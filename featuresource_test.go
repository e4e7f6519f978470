package img2aa

import (
	"testing"

	"github.com/wbrown/img2aa/imageutil"
)

func TestFeaturesFromImage(t *testing.T) {
	t.Parallel()
	img := imageutil.CreateLineArtImage(40, 20, 10)

	f, paint := FeaturesFromImage(img.RGBA, FeatureOptions{})
	if f.Width != 40 || f.Height != 20 {
		t.Fatalf("Expected 40x20 features, got %dx%d", f.Width, f.Height)
	}
	if got := f.Ink[5*40+10]; got != 1 {
		t.Errorf("Expected full ink on a black stroke, got %v", got)
	}
	if got := f.Ink[5*40+5]; got != 0 {
		t.Errorf("Expected no ink on white paper, got %v", got)
	}
	if got := f.Orientation[5*40+5]; got != 0 {
		t.Errorf("Expected zero orientation on flat paper, got %v", got)
	}
	if got := f.Orientation[5*40+9]; got <= 0 || got > 1 {
		t.Errorf("Expected orientation in (0, 1] beside a stroke, got %v", got)
	}
	if d := f.Density[5*40+10]; d <= 0 || d >= 1 {
		t.Errorf("Expected blurred density on a stroke, got %v", d)
	}
	if len(f.Paint) != 2 {
		t.Fatalf("Expected blue and red paint channels, got %d", len(f.Paint))
	}
	for _, ch := range f.Paint {
		for _, v := range ch {
			if v != 0 {
				t.Fatal("Expected no paint in line art")
			}
		}
	}
	if paint.Bounds().Dx() != 40 {
		t.Errorf("Expected paint mask at feature size, got %v", paint.Bounds())
	}
}

func TestFeaturesFromImagePaint(t *testing.T) {
	t.Parallel()
	img := imageutil.CreatePaintedImage(40, 20, imageutil.RGB{R: 10, G: 20, B: 220})

	f, paint := FeaturesFromImage(img.RGBA, FeatureOptions{Width: 20})
	if f.Width != 20 || f.Height != 10 {
		t.Fatalf("Expected 20x10 features, got %dx%d", f.Width, f.Height)
	}
	if got := f.Paint[0][5*20+2]; got != 1 {
		t.Errorf("Expected blue paint, got %v", got)
	}
	if got := f.Paint[1][5*20+2]; got != 0 {
		t.Errorf("Expected no red paint, got %v", got)
	}
	if got := f.Ink[5*20+2]; got != 0 {
		t.Errorf("Expected paint removed from ink, got %v", got)
	}
	if samplePaint(paint, 2, 5, 128) != paintBlue {
		t.Error("Expected the returned mask to sample as blue")
	}
	if samplePaint(paint, 17, 5, 128) != paintNone {
		t.Error("Expected no paint on the unpainted half")
	}
}

func TestFeaturesFromImageEdges(t *testing.T) {
	t.Parallel()
	img := imageutil.CreateEdgeImage(60, 60)
	f, _ := FeaturesFromImage(img.RGBA, FeatureOptions{Edges: true})

	var ink float32
	for _, v := range f.Ink {
		ink += v
	}
	if ink == 0 {
		t.Error("Expected edge ink around the bright square")
	}
	if got := f.Ink[30*60+30]; got != 0 {
		t.Errorf("Expected no edge ink inside the square, got %v", got)
	}
}
