package img2aa

import (
	"context"
	"errors"
	"image"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/wbrown/img2aa/internal/metrics"
)

// LineRequest describes one scan line to transcribe.
type LineRequest struct {
	Features *FeatureMaps
	// Width is the target line width in pixels, measured from the left
	// margin. Zero means the rest of the feature width.
	Width int
	// BluePattern and RedPattern are the hatching cycles for blue and
	// red paint.
	BluePattern string
	RedPattern  string
	// PaintMask is the optional paint overlay in feature coordinates.
	PaintMask image.Image
	// LineCenterY is the feature row the line is centered on.
	LineCenterY int
	// BBSMode forbids leading and doubled half-width spaces.
	BBSMode bool
	// ThinSpace permits thin spaces.
	ThinSpace bool
	// PreviousLine is the rendered raster of the line above, used for
	// connectivity. It may be nil.
	PreviousLine *image.Gray
}

// Line is a decoded line. Raster is the line rendered in the engine's
// font and is suitable as the next request's PreviousLine.
type Line struct {
	Text   string
	Score  float64
	Steps  int
	Raster *image.Gray
}

// beam is one hypothesis. Beams are never modified once they enter a
// beam list; context and residual are shared with the parent until an
// extension changes them.
type beam struct {
	text     []rune
	score    float64
	cursor   float64
	last     rune
	steps    int
	context  *raster
	residual *raster
}

type candidateKind int

const (
	kindGlyph candidateKind = iota
	kindSpace
	kindHatch
	kindForced
)

// candidate is a proposed extension scored relative to its parent.
type candidate struct {
	glyph   rune
	advance float64
	score   float64
	bitmap  *raster
	kind    candidateKind
}

type pending struct {
	parent *beam
	cand   candidate
	total  float64
}

// lineDecoder carries the per-line state of one SolveLine call. The
// engine's read lock is held for its whole lifetime.
type lineDecoder struct {
	e       *Engine
	p       Params
	req     LineRequest
	band    *lineBand
	width   int
	margin  float64
	probe   int
	sampler patchSampler
	draft   *draftLine
	cache   *recognitionCache
	logger  *zap.Logger
}

func (e *Engine) newLineDecoder(req LineRequest, origin int) *lineDecoder {
	f := req.Features
	lineHeight := e.font.LineHeight()
	width := req.Width
	if width <= 0 || origin+width > f.Width {
		width = f.Width - origin
	}
	margin := e.params.RightMargin
	if margin <= 0 {
		margin = e.table.Half
	}
	d := &lineDecoder{
		e:       e,
		p:       e.params,
		req:     req,
		band:    newLineBand(f, req.LineCenterY, lineHeight, origin),
		width:   width,
		margin:  margin,
		probe:   int(math.Ceil(e.table.Full)),
		sampler: samplerFor(e.params, lineHeight),
		cache:   newRecognitionCache(),
		logger:  e.logger,
	}
	if prev := rasterFromGray(req.PreviousLine); prev != nil {
		above := newRaster(f.Width, lineHeight)
		above.stamp(prev, origin)
		d.band.above = above
	}
	return d
}

// lookahead runs the draft pass over the line below and exposes it to
// the decoder.
func (d *lineDecoder) lookahead(ctx context.Context) {
	d.draft = d.runDraft(ctx)
	if d.draft != nil {
		d.band.below = d.draft.raster
	}
}

// SolveLine transcribes one line. It never fails: when the backend for
// the selected mode is not ready the result is empty, and a failed
// backend call only removes glyph candidates at that position.
func (e *Engine) SolveLine(ctx context.Context, req LineRequest) Line {
	e.mu.RLock()
	defer e.mu.RUnlock()

	mode := e.mode.String()
	if err := e.ready(ctx); err != nil {
		if !e.notReadyLogged.Swap(true) {
			e.logger.Warn("Recognition backend not ready", zap.Error(err))
		}
		metrics.LinesTotal.WithLabelValues(mode, "not_ready").Inc()
		return Line{}
	}
	if req.Features == nil || req.Features.Width <= e.params.LeftMargin {
		metrics.LinesTotal.WithLabelValues(mode, "empty").Inc()
		return Line{}
	}
	e.notReadyLogged.Store(false)

	d := e.newLineDecoder(req, e.params.LeftMargin)
	d.lookahead(ctx)
	beams := d.run(ctx)
	best := beams[0]
	metrics.DecodeSteps.Observe(float64(best.steps))
	d.logger.Debug("Line decoded",
		zap.Int("center_y", req.LineCenterY),
		zap.Int("glyphs", len(best.text)),
		zap.Float64("score", best.score),
		zap.Int("cache_hits", d.cache.hits),
		zap.Int("cache_misses", d.cache.misses),
	)
	if len(best.text) == 0 {
		metrics.LinesTotal.WithLabelValues(mode, "empty").Inc()
		return Line{}
	}
	metrics.LinesTotal.WithLabelValues(mode, "ok").Inc()
	return Line{
		Text:   string(best.text),
		Score:  best.score,
		Steps:  best.steps,
		Raster: e.renderRunes(best.text, d.width).gray(),
	}
}

func (d *lineDecoder) initial() *beam {
	b := &beam{}
	if d.e.mode == ModeClassifier {
		b.context = newRaster(d.band.width, d.band.height)
	} else {
		b.residual = d.band.ink
	}
	return b
}

func (d *lineDecoder) finished(b *beam) bool {
	return b.cursor >= float64(d.width)-d.margin
}

// run performs the beam search and returns the final beams, best first.
// The result is never empty.
func (d *lineDecoder) run(ctx context.Context) []*beam {
	beams := []*beam{d.initial()}
	budget := 2 * d.width
	for step := 0; step < budget; step++ {
		var finished, active []*beam
		for _, b := range beams {
			if d.finished(b) {
				finished = append(finished, b)
			} else {
				active = append(active, b)
			}
		}
		if len(active) == 0 {
			break
		}

		var pool []pending
		for _, b := range active {
			for _, c := range d.expand(ctx, b) {
				pool = append(pool, pending{parent: b, cand: c, total: b.score + c.score})
			}
		}
		sort.SliceStable(pool, func(i, j int) bool {
			return pool[i].total > pool[j].total
		})
		if len(pool) > d.p.BeamWidth {
			pool = pool[:d.p.BeamWidth]
		}

		next := make([]*beam, 0, len(pool)+len(finished))
		for _, pc := range pool {
			next = append(next, d.extend(pc.parent, pc.cand))
		}
		// Finished beams never change, so only the best of them can win.
		sortBeams(finished)
		if len(finished) > d.p.BeamWidth {
			finished = finished[:d.p.BeamWidth]
		}
		beams = append(next, finished...)
	}
	sortBeams(beams)
	return beams
}

func sortBeams(beams []*beam) {
	sort.SliceStable(beams, func(i, j int) bool {
		return beams[i].score > beams[j].score
	})
}

// expand returns at least one candidate for b.
func (d *lineDecoder) expand(ctx context.Context, b *beam) []candidate {
	x := d.band.origin + int(b.cursor)
	if meanInk(d.inkOf(b), x, d.probe) < d.p.BlankDensity {
		return d.blankCandidates(b, 0)
	}
	var cands []candidate
	if d.e.mode == ModeClassifier {
		cands = d.classifierCandidates(ctx, b)
	} else {
		cands = d.vectorCandidates(ctx, b)
	}
	if len(cands) == 0 {
		return d.blankCandidates(b, d.p.FallbackPenalty)
	}
	return cands
}

// inkOf is the ink a hypothesis still has to explain.
func (d *lineDecoder) inkOf(b *beam) *raster {
	if b.residual != nil {
		return b.residual
	}
	return d.band.ink
}

func (d *lineDecoder) extend(parent *beam, c candidate) *beam {
	text := make([]rune, len(parent.text)+1)
	copy(text, parent.text)
	text[len(parent.text)] = c.glyph
	child := &beam{
		text:     text,
		score:    parent.score + c.score,
		cursor:   parent.cursor + c.advance,
		last:     c.glyph,
		steps:    parent.steps + 1,
		context:  parent.context,
		residual: parent.residual,
	}
	if c.bitmap != nil {
		x := d.band.origin + int(parent.cursor)
		if parent.context != nil {
			child.context = parent.context.clone()
			child.context.stamp(c.bitmap, x)
		}
		if parent.residual != nil && c.kind == kindGlyph {
			child.residual = parent.residual.clone()
			subtractInk(child.residual, c.bitmap, x, d.p.InkThreshold)
		}
	}
	if d.e.observeExtend != nil {
		d.e.observeExtend(parent, child)
	}
	return child
}

// subtractInk zeroes residual pixels under the glyph's ink.
func subtractInk(residual, g *raster, x int, threshold float64) {
	for gy := 0; gy < g.h; gy++ {
		for gx := 0; gx < g.w; gx++ {
			if float64(g.pix[gy*g.w+gx]) >= threshold {
				residual.set(x+gx, gy, 0)
			}
		}
	}
}

// recognize runs the mode's backend on a patch. ok is false when the
// call failed; the failure is logged and counted but not returned.
func (d *lineDecoder) recognize(ctx context.Context, patch Patch, cursor float64) ([]float32, bool) {
	key := patchKey(patch)
	if out, hit := d.cache.get(key); hit {
		return out, out != nil
	}

	var (
		out     []float32
		err     error
		backend string
	)
	if d.e.mode == ModeClassifier {
		backend = "classifier"
		out, err = d.e.classifier.Classify(ctx, patch)
	} else {
		backend = "embedder"
		out, err = d.e.embedder.Embed(ctx, patch)
	}
	if err != nil {
		ierr := &InferenceError{Backend: backend, Err: err}
		metrics.InferenceErrorsTotal.WithLabelValues(backend).Inc()
		if !errors.Is(err, context.Canceled) {
			d.logger.Debug("Inference failed",
				zap.Float64("cursor", cursor),
				zap.Error(ierr),
			)
		}
		d.cache.put(key, nil)
		return nil, false
	}
	d.cache.put(key, out)
	return out, true
}

// renderRunes lays text out with the metrics table advances, the same
// positions the decoder used. Callers hold the read lock.
func (e *Engine) renderRunes(text []rune, width int) *raster {
	var total float64
	for _, r := range text {
		w, _ := e.glyphWidth(r)
		total += w
	}
	if w := int(math.Ceil(total)); w > width {
		width = w
	}
	out := newRaster(width, e.font.LineHeight())
	var cursor float64
	for _, r := range text {
		w, ok := e.glyphWidth(r)
		if !ok {
			continue
		}
		if !isSpace(r) {
			if g := e.glyphBitmap(r); g != nil {
				out.stamp(g, int(cursor))
			}
		}
		cursor += w
	}
	return out
}
