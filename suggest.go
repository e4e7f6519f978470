package img2aa

import (
	"context"
	"image"

	"go.uber.org/zap"
)

// SuggestRequest asks for the single best glyph at one cursor position.
type SuggestRequest struct {
	Features *FeatureMaps
	// LocalX and LocalY are the feature column of the cursor and the
	// row the line is centered on.
	LocalX, LocalY int
	BluePattern    string
	RedPattern     string
	// PrevGlyph is the glyph left of the cursor, zero at line start.
	PrevGlyph rune
	PaintMask image.Image
	BBSMode   bool
	ThinSpace bool
}

// Scored is a glyph with its backend score: a probability in classifier
// mode, a cosine similarity in vector mode.
type Scored struct {
	Glyph rune
	Score float64
}

// SuggestNext returns the best single continuation at the cursor,
// including hatching and whitespace, or zero when nothing is available.
func (e *Engine) SuggestNext(ctx context.Context, req SuggestRequest) rune {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.ready(ctx); err != nil {
		e.logger.Debug("Suggestion unavailable", zap.Error(err))
		return 0
	}
	if req.Features == nil || req.LocalX < 0 || req.LocalX >= req.Features.Width {
		return 0
	}
	d := e.newLineDecoder(LineRequest{
		Features:    req.Features,
		BluePattern: req.BluePattern,
		RedPattern:  req.RedPattern,
		PaintMask:   req.PaintMask,
		LineCenterY: req.LocalY,
		BBSMode:     req.BBSMode,
		ThinSpace:   req.ThinSpace,
	}, req.LocalX)

	b := d.initial()
	if req.PrevGlyph != 0 {
		b.text = []rune{req.PrevGlyph}
		b.last = req.PrevGlyph
	}
	cands := d.expand(ctx, b)
	best := 0
	for i := range cands {
		if cands[i].score > cands[best].score {
			best = i
		}
	}
	return cands[best].glyph
}

// Candidates returns the backend's top-K glyphs at a position without
// any filtering or commitment.
func (e *Engine) Candidates(ctx context.Context, features *FeatureMaps, localX, localY int) []Scored {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.ready(ctx); err != nil {
		return nil
	}
	if features == nil || localX < 0 || localX >= features.Width {
		return nil
	}
	d := e.newLineDecoder(LineRequest{Features: features, LineCenterY: localY}, localX)
	b := d.initial()

	var out []Scored
	if e.mode == ModeClassifier {
		patch := d.sampler.patchAt(d.band, d.band.ink, b.context, 0)
		probs, ok := d.recognize(ctx, patch, 0)
		if !ok {
			return nil
		}
		for _, i := range topIndices(probs, e.params.TopK) {
			if i < len(e.vocab) {
				out = append(out, Scored{Glyph: e.vocab[i], Score: float64(probs[i])})
			}
		}
		return out
	}

	patch := d.sampler.patchAt(d.band, b.residual, nil, 0)
	vec, ok := d.recognize(ctx, patch, 0)
	if !ok {
		return nil
	}
	for _, m := range e.db.Nearest(Normalize(vec), e.params.TopK) {
		out = append(out, Scored{Glyph: e.db.Entries[m.Index].Glyph, Score: m.Similarity})
	}
	return out
}
