package img2aa

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestSolveDocumentLines(t *testing.T) {
	t.Parallel()
	e := newVectorEngine(t, "A|-")
	f := NewFeatureMaps(40, 26)
	drawGlyph(f, 'A', 0, 0)
	drawGlyph(f, '|', 0, 13)

	doc, err := e.SolveDocument(context.Background(), DocumentRequest{Features: f})
	if err != nil {
		t.Fatalf("SolveDocument failed: %v", err)
	}
	if len(doc.Lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(doc.Lines))
	}
	if !strings.HasPrefix(doc.Lines[0].Text, "A") {
		t.Errorf("Expected first line to start with A, got %q", doc.Lines[0].Text)
	}
	if !strings.HasPrefix(doc.Lines[1].Text, "|") {
		t.Errorf("Expected second line to start with |, got %q", doc.Lines[1].Text)
	}
	if got := strings.Count(doc.Text(), "\n"); got != 1 {
		t.Errorf("Expected 1 newline in document text, got %d", got)
	}
}

func TestSolveDocumentCancelled(t *testing.T) {
	t.Parallel()
	e := newVectorEngine(t, "A")
	f := NewFeatureMaps(40, 26)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := e.SolveDocument(ctx, DocumentRequest{Features: f})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(doc.Lines) != 0 {
		t.Errorf("Expected no lines after cancellation, got %d", len(doc.Lines))
	}
}

func TestSolveDocumentNilFeatures(t *testing.T) {
	t.Parallel()
	e := newVectorEngine(t, "A")
	doc, err := e.SolveDocument(context.Background(), DocumentRequest{})
	if err != nil || len(doc.Lines) != 0 {
		t.Errorf("Expected empty document, got %d lines, err %v", len(doc.Lines), err)
	}
}

func TestRenderText(t *testing.T) {
	t.Parallel()
	e := newVectorEngine(t, "A")
	img := e.RenderText("A A")
	if img.Bounds().Dx() != 21 || img.Bounds().Dy() != 13 {
		t.Errorf("Expected 21x13 raster, got %v", img.Bounds())
	}
	var ink int
	for _, v := range img.Pix {
		if v > 0 {
			ink++
		}
	}
	if ink == 0 {
		t.Error("Expected rendered ink")
	}

	unbuilt := NewEngine()
	if b := unbuilt.RenderText("A").Bounds(); !b.Empty() {
		t.Errorf("Expected empty raster before rebuild, got %v", b)
	}
}

func TestDraftLine(t *testing.T) {
	t.Parallel()
	p := DefaultParams()
	p.DraftBlankDensity = 0.01
	e := newVectorEngine(t, "A", WithParams(p))
	f := NewFeatureMaps(30, 26)
	drawGlyph(f, 'A', 0, 13)

	e.mu.RLock()
	defer e.mu.RUnlock()
	d := e.newLineDecoder(LineRequest{Features: f, LineCenterY: 6}, 0)
	d.lookahead(context.Background())
	if d.draft == nil {
		t.Fatal("Expected a draft of the line below")
	}
	if d.band.below != d.draft.raster {
		t.Error("Expected draft raster to be the below channel")
	}

	var got, want float64
	for _, v := range d.draft.raster.pix {
		got += float64(v)
	}
	for _, v := range e.glyphBitmap('A').pix {
		want += float64(v)
	}
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("Expected draft ink %v, got %v", want, got)
	}
	if len(d.draft.topRow) != 30 {
		t.Errorf("Expected topRow to span the feature width, got %d", len(d.draft.topRow))
	}

	last := e.newLineDecoder(LineRequest{Features: f, LineCenterY: 19}, 0)
	last.lookahead(context.Background())
	if last.draft != nil || last.band.below != nil {
		t.Error("Expected no draft below the last line")
	}
}

func TestCandidates(t *testing.T) {
	t.Parallel()
	e := newVectorEngine(t, "A|-")
	f := NewFeatureMaps(30, 13)
	drawGlyph(f, 'A', 0, 0)

	got := e.Candidates(context.Background(), f, 0, 6)
	if len(got) != 3 {
		t.Fatalf("Expected 3 candidates, got %v", got)
	}
	if got[0].Glyph != 'A' || got[0].Score < 0.999 {
		t.Errorf("Expected A with similarity 1 first, got %q %v", got[0].Glyph, got[0].Score)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("Expected descending scores, got %v", got)
		}
	}
	if c := e.Candidates(context.Background(), f, 30, 6); c != nil {
		t.Errorf("Expected nothing outside the features, got %v", c)
	}
}

func TestSuggestNextGlyph(t *testing.T) {
	t.Parallel()
	e := newVectorEngine(t, "A|-")
	f := NewFeatureMaps(40, 13)
	drawGlyph(f, '|', 14, 0)
	ctx := context.Background()

	if r := e.SuggestNext(ctx, SuggestRequest{Features: f, LocalX: 14, LocalY: 6}); r != '|' {
		t.Errorf("Expected | at its column, got %q", r)
	}
	if r := e.SuggestNext(ctx, SuggestRequest{Features: f, LocalX: 0, LocalY: 6}); !isSpace(r) {
		t.Errorf("Expected whitespace before the ink, got %q", r)
	}
	if r := e.SuggestNext(ctx, SuggestRequest{Features: f, LocalX: -1, LocalY: 6}); r != 0 {
		t.Errorf("Expected no suggestion outside the features, got %q", r)
	}
}
