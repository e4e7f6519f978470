package img2aa

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"strings"
	"sync"
	"testing"
)

func TestSolveLineBlankBBS(t *testing.T) {
	t.Parallel()
	e := newVectorEngine(t, "AB")
	f := NewFeatureMaps(100, 13)

	line := e.SolveLine(context.Background(), LineRequest{
		Features:    f,
		Width:       100,
		LineCenterY: 6,
		BBSMode:     true,
	})

	runes := []rune(line.Text)
	if len(runes) == 0 {
		t.Fatal("Expected whitespace, got empty line")
	}
	for i, r := range runes {
		if r != FullSpace {
			t.Errorf("Expected only full-width spaces, got %q at %d", r, i)
		}
	}
	// Full-width space is 14px in the reference font.
	if n := len(runes); n < 6 || n > 8 {
		t.Errorf("Expected about 100/14 spaces, got %d", n)
	}
	if line.Raster == nil || line.Raster.Bounds().Dx() < 100 {
		t.Errorf("Expected a line raster at least 100px wide, got %v", line.Raster)
	}
}

func TestSolveLineBlankTerminatesWithWhitespace(t *testing.T) {
	t.Parallel()
	e := newVectorEngine(t, "AB")
	f := NewFeatureMaps(300, 13)

	for _, thin := range []bool{false, true} {
		var extensions int
		var mu sync.Mutex
		e.observeExtend = func(_, _ *beam) {
			mu.Lock()
			extensions++
			mu.Unlock()
		}
		line := e.SolveLine(context.Background(), LineRequest{
			Features:    f,
			LineCenterY: 6,
			ThinSpace:   thin,
		})
		for _, r := range line.Text {
			if !isSpace(r) {
				t.Errorf("Expected whitespace only, got %q", r)
			}
		}
		if line.Steps > 2*300 {
			t.Errorf("Expected at most %d steps, got %d", 2*300, line.Steps)
		}
		if extensions == 0 {
			t.Error("Expected beam extensions to be observed")
		}
	}
}

func TestSolveLineRecognizesGlyphVector(t *testing.T) {
	t.Parallel()
	e := newVectorEngine(t, "A|-")
	f := NewFeatureMaps(30, 13)
	drawGlyph(f, 'A', 0, 0)

	line := e.SolveLine(context.Background(), LineRequest{Features: f, LineCenterY: 6})
	if !strings.HasPrefix(line.Text, "A") {
		t.Errorf("Expected line to start with A, got %q", line.Text)
	}
	if strings.Count(line.Text, "A") != 1 {
		t.Errorf("Expected ink to be claimed once, got %q", line.Text)
	}
}

func TestSolveLineRecognizesGlyphClassifier(t *testing.T) {
	t.Parallel()
	p := DefaultParams()
	e := NewEngine(WithClassifier(NewTemplateClassifier([]rune("A|-"), p)))
	if err := e.Rebuild(context.Background(), ReferenceFont(), []rune("A|-")); err != nil {
		t.Fatal(err)
	}
	if e.Mode() != ModeClassifier {
		t.Fatalf("Expected classifier mode, got %v", e.Mode())
	}
	f := NewFeatureMaps(30, 13)
	drawGlyph(f, 'A', 0, 0)

	line := e.SolveLine(context.Background(), LineRequest{Features: f, LineCenterY: 6})
	if !strings.HasPrefix(line.Text, "A") {
		t.Errorf("Expected line to start with A, got %q", line.Text)
	}
}

type flakyEmbedder struct {
	PixelEmbedder
	fail bool
}

func (f *flakyEmbedder) Embed(ctx context.Context, p Patch) ([]float32, error) {
	if f.fail {
		return nil, errors.New("inference timeout")
	}
	return f.PixelEmbedder.Embed(ctx, p)
}

func TestSolveLineInferenceFailureFallsBack(t *testing.T) {
	t.Parallel()
	emb := &flakyEmbedder{}
	e := newVectorEngine(t, "A", WithEmbedder(emb))
	emb.fail = true

	f := NewFeatureMaps(40, 13)
	drawGlyph(f, 'A', 0, 0)
	line := e.SolveLine(context.Background(), LineRequest{Features: f, LineCenterY: 6})
	if line.Text == "" {
		t.Fatal("Expected whitespace fallback, got empty line")
	}
	for _, r := range line.Text {
		if !isSpace(r) {
			t.Errorf("Expected whitespace only after failed inference, got %q", r)
		}
	}
}

func bluePaint(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{B: 255, A: 255}}, image.Point{}, draw.Src)
	return img
}

func TestHatchingBluePattern(t *testing.T) {
	t.Parallel()
	e := newVectorEngine(t, "12")
	f := NewFeatureMaps(100, 13)
	mask := bluePaint(100, 13)
	ctx := context.Background()

	req := SuggestRequest{
		Features:    f,
		LocalY:      6,
		BluePattern: "12",
		PaintMask:   mask,
	}
	if r := e.SuggestNext(ctx, req); r != '1' {
		t.Errorf("Expected '1' at line start, got %q", r)
	}
	req.PrevGlyph = '1'
	if r := e.SuggestNext(ctx, req); r != '2' {
		t.Errorf("Expected '2' after '1', got %q", r)
	}
	req.PrevGlyph = '2'
	if r := e.SuggestNext(ctx, req); r != '1' {
		t.Errorf("Expected wrap to '1' after '2', got %q", r)
	}

	line := e.SolveLine(ctx, LineRequest{
		Features:    f,
		BluePattern: "12",
		RedPattern:  "xy",
		PaintMask:   mask,
		LineCenterY: 6,
	})
	if !strings.HasPrefix(line.Text, "1212") {
		t.Errorf("Expected alternating hatching, got %q", line.Text)
	}
	for _, r := range line.Text {
		if r != '1' && r != '2' {
			t.Errorf("Expected only hatching characters, got %q", r)
		}
	}
}

func TestHatchingHalfSpacesBBS(t *testing.T) {
	t.Parallel()
	e := newVectorEngine(t, "12")
	line := e.SolveLine(context.Background(), LineRequest{
		Features:    NewFeatureMaps(60, 13),
		BluePattern: string([]rune{HalfSpace, HalfSpace}),
		PaintMask:   bluePaint(60, 13),
		LineCenterY: 6,
		BBSMode:     true,
		ThinSpace:   true,
	})
	text := []rune(line.Text)
	if len(text) == 0 {
		t.Fatal("Expected hatching whitespace, got empty line")
	}
	if text[0] == HalfSpace {
		t.Errorf("Expected no leading half space, got %q", line.Text)
	}
	for i := 1; i < len(text); i++ {
		if text[i] == HalfSpace && text[i-1] == HalfSpace {
			t.Errorf("Expected no consecutive half spaces, got %q", line.Text)
			break
		}
	}
	for _, r := range text {
		if r != HalfSpace && r != FullSpace {
			t.Errorf("Expected only half and full spaces, got %q", r)
		}
	}
}

func TestHatchingEmptyPatternFallsBackToSpace(t *testing.T) {
	t.Parallel()
	e := newVectorEngine(t, "12")
	f := NewFeatureMaps(60, 13)
	line := e.SolveLine(context.Background(), LineRequest{
		Features:    f,
		PaintMask:   bluePaint(60, 13),
		LineCenterY: 6,
	})
	for _, r := range line.Text {
		if !isSpace(r) {
			t.Errorf("Expected whitespace with empty pattern, got %q", r)
		}
	}
}

func randomInk(w, h int, seed int64) *FeatureMaps {
	rng := rand.New(rand.NewSource(seed))
	f := NewFeatureMaps(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if rng.Float64() < 0.15 {
				f.SetInk(x, y, 1)
			}
		}
	}
	return f
}

func checkMonotonic(t *testing.T, e *Engine, f *FeatureMaps, bbs, thin bool) string {
	t.Helper()
	var mu sync.Mutex
	var violations, extensions int
	e.observeExtend = func(parent, child *beam) {
		mu.Lock()
		defer mu.Unlock()
		extensions++
		if child.cursor < parent.cursor {
			violations++
		}
		if len(child.text) != len(parent.text)+1 {
			violations++
		}
	}
	line := e.SolveLine(context.Background(), LineRequest{
		Features:    f,
		LineCenterY: 6,
		BBSMode:     bbs,
		ThinSpace:   thin,
	})
	if extensions == 0 {
		t.Error("Expected beam extensions")
	}
	if violations != 0 {
		t.Errorf("Expected cursor to never move backwards, got %d violations", violations)
	}
	if line.Steps > 2*f.Width {
		t.Errorf("Expected at most %d steps, got %d", 2*f.Width, line.Steps)
	}
	return line.Text
}

func TestCursorMonotonicRandomInk(t *testing.T) {
	t.Parallel()
	vector := newVectorEngine(t, "AHIX|-/\\.")
	p := DefaultParams()
	classifier := NewEngine(WithClassifier(NewTemplateClassifier([]rune("AHIX|-/\\. "), p)))
	if err := classifier.Rebuild(context.Background(), ReferenceFont(), []rune("AHIX|-/\\.")); err != nil {
		t.Fatal(err)
	}

	for seed := int64(1); seed <= 5; seed++ {
		f := randomInk(80, 26, seed)
		for _, e := range []*Engine{vector, classifier} {
			text := checkMonotonic(t, e, f, true, seed%2 == 0)
			if strings.HasPrefix(text, " ") {
				t.Errorf("Expected no leading half-width space in BBS mode, got %q", text)
			}
			if strings.Contains(text, "  ") {
				t.Errorf("Expected no doubled half-width space in BBS mode, got %q", text)
			}
		}
	}
}

func TestSolveLineRespectsPreviousLine(t *testing.T) {
	t.Parallel()
	e := newVectorEngine(t, "|-")
	f := NewFeatureMaps(40, 13)
	drawGlyph(f, '|', 0, 0)
	prev := e.RenderText("|")

	line := e.SolveLine(context.Background(), LineRequest{
		Features:     f,
		LineCenterY:  6,
		PreviousLine: prev,
	})
	if !strings.HasPrefix(line.Text, "|") {
		t.Errorf("Expected connected bar, got %q", line.Text)
	}
}

func TestExtendCopiesOnWrite(t *testing.T) {
	t.Parallel()
	e := newVectorEngine(t, "A")
	f := NewFeatureMaps(30, 13)
	drawGlyph(f, 'A', 0, 0)

	e.mu.RLock()
	defer e.mu.RUnlock()
	d := e.newLineDecoder(LineRequest{Features: f, LineCenterY: 6}, 0)
	root := d.initial()
	before := root.residual.clone()

	g := e.glyphBitmap('A')
	child := d.extend(root, candidate{glyph: 'A', advance: 7, bitmap: g, kind: kindGlyph})
	space := d.extend(root, candidate{glyph: FullSpace, advance: 14, kind: kindSpace})

	for i := range before.pix {
		if root.residual.pix[i] != before.pix[i] {
			t.Fatal("Expected parent residual to be unchanged")
		}
	}
	if space.residual != root.residual {
		t.Error("Expected whitespace extension to share the parent residual")
	}
	if child.residual == root.residual {
		t.Fatal("Expected glyph extension to copy the residual")
	}
	if meanInk(child.residual, 0, 7) != 0 {
		t.Error("Expected glyph ink removed from child residual")
	}
	if child.cursor != 7 || child.last != 'A' || string(child.text) != "A" {
		t.Errorf("Expected child at 7 after A, got %v %q %q", child.cursor, child.last, string(child.text))
	}
}
