package img2aa

import (
	"context"
	"math"
	"sort"
)

// Dot and bar glyphs are easily hallucinated from specks and stray
// horizontal strokes, so they need more confidence than other glyphs.
var (
	dotGlyphs = map[rune]bool{
		'.': true, ',': true, '`': true, '\'': true,
		'・': true, '･': true, '、': true, '。': true,
	}
	barGlyphs = map[rune]bool{
		'-': true, '_': true, '~': true,
		'ー': true, '―': true, '─': true, '￣': true,
	}
)

// confidenceFloor is the minimum probability for g.
func (p Params) confidenceFloor(g rune) float64 {
	switch {
	case dotGlyphs[g]:
		return math.Max(p.MinConfidence, p.DotConfidence)
	case barGlyphs[g]:
		return math.Max(p.MinConfidence, p.BarConfidence)
	}
	return p.MinConfidence
}

// fixGlyph maps a recognized glyph onto one the line may contain. It
// returns false when the glyph must be dropped.
func (d *lineDecoder) fixGlyph(g rune, b *beam) (rune, bool) {
	switch g {
	case ThinSpace:
		return g, d.req.ThinSpace
	case HalfSpace:
		if !d.req.ThinSpace {
			return 0, false
		}
		return d.bbsSpace(g, b), true
	case FullSpace:
		return g, true
	}
	return g, d.e.allowed[g]
}

// bbsSpace widens a half space that would lead the line or follow
// another half space to a full space when BBS rules apply.
func (d *lineDecoder) bbsSpace(g rune, b *beam) rune {
	if g == HalfSpace && d.req.BBSMode && (len(b.text) == 0 || b.last == HalfSpace) {
		return FullSpace
	}
	return g
}

// topIndices returns the indices of the k largest values, largest first,
// lower index first among equals.
func topIndices(v []float32, k int) []int {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return v[idx[a]] > v[idx[b]]
	})
	if len(idx) > k {
		idx = idx[:k]
	}
	return idx
}

// classifierCandidates scores the classifier's top-K glyphs by log
// probability.
func (d *lineDecoder) classifierCandidates(ctx context.Context, b *beam) []candidate {
	patch := d.sampler.patchAt(d.band, d.band.ink, b.context, b.cursor)
	probs, ok := d.recognize(ctx, patch, b.cursor)
	if !ok {
		return nil
	}
	var out []candidate
	for _, i := range topIndices(probs, d.p.TopK) {
		if i >= len(d.e.vocab) {
			continue
		}
		prob := float64(probs[i])
		g := d.e.vocab[i]
		if prob < d.p.confidenceFloor(g) {
			continue
		}
		g, ok := d.fixGlyph(g, b)
		if !ok {
			continue
		}
		w, ok := d.e.glyphWidth(g)
		if !ok {
			continue
		}
		c := candidate{
			glyph:   g,
			advance: w,
			score:   math.Log(prob + d.p.Epsilon),
			kind:    kindGlyph,
		}
		if !isSpace(g) {
			c.bitmap = d.e.glyphBitmap(g)
		}
		out = append(out, c)
	}
	return out
}

// vectorCandidates matches the hypothesis' residual ink against the
// glyph database and scores each hit by similarity, how much required
// ink it explains, how much ink it adds and how well it joins the lines
// above and below.
func (d *lineDecoder) vectorCandidates(ctx context.Context, b *beam) []candidate {
	patch := d.sampler.patchAt(d.band, b.residual, nil, b.cursor)
	vec, ok := d.recognize(ctx, patch, b.cursor)
	if !ok {
		return nil
	}
	x := d.band.origin + int(b.cursor)
	var out []candidate
	for _, m := range d.e.db.Nearest(Normalize(vec), d.p.TopK) {
		if m.Similarity < d.p.MinSimilarity {
			continue
		}
		entry := &d.e.db.Entries[m.Index]
		if !d.e.allowed[entry.Glyph] {
			continue
		}
		bm := entry.Bitmap.raster()
		cov, exc := coverage(b.residual, bm, x, d.p.InkThreshold)
		conn := d.connectivity(entry, b.cursor)
		score := d.p.SimilarityWeight*(m.Similarity-1) +
			d.p.CoverageWeight*(cov-1) -
			d.p.ExcessWeight*exc +
			d.p.ConnectWeight*conn
		out = append(out, candidate{
			glyph:   entry.Glyph,
			advance: entry.Advance,
			score:   score,
			bitmap:  bm,
			kind:    kindGlyph,
		})
	}
	return out
}

// coverage compares a glyph placed at x with the residual ink under its
// box. cov is the fraction of required pixels the glyph inks; exc is the
// fraction of the glyph's ink that lands on no required pixel.
func coverage(residual, g *raster, x int, threshold float64) (cov, exc float64) {
	var required, explained, inked, outside int
	for gy := 0; gy < g.h; gy++ {
		for gx := 0; gx < g.w; gx++ {
			need := float64(residual.at(x+gx, gy)) >= threshold
			has := float64(g.pix[gy*g.w+gx]) >= threshold
			if need {
				required++
				if has {
					explained++
				}
			}
			if has {
				inked++
				if !need {
					outside++
				}
			}
		}
	}
	if required > 0 {
		cov = float64(explained) / float64(required)
	}
	if inked > 0 {
		exc = float64(outside) / float64(inked)
	}
	return cov, exc
}

// connectivity counts the anchors of entry that meet ink on a
// neighbouring line: the entry anchor against the bottom rows of the
// line above, the exit anchor against the draft of the line below.
func (d *lineDecoder) connectivity(entry *GlyphDBEntry, cursor float64) float64 {
	var conn float64
	origin := float64(d.band.origin)
	if entry.EntryAnchorX != nil && d.band.above != nil {
		col := int(math.Round(origin + cursor + *entry.EntryAnchorX))
		if bottomInk(d.band.above, col, d.p.InkThreshold) {
			conn++
		}
	}
	if entry.ExitAnchorX != nil && d.draft != nil {
		col := int(math.Round(origin + cursor + *entry.ExitAnchorX))
		for dx := -1; dx <= 1; dx++ {
			c := col + dx
			if c >= 0 && c < len(d.draft.topRow) && d.draft.topRow[c] {
				conn++
				break
			}
		}
	}
	return conn
}

// bottomInk reports ink in the bottom quarter of r within one column of
// col.
func bottomInk(r *raster, col int, threshold float64) bool {
	band := r.h / 4
	if band < 1 {
		band = 1
	}
	for y := r.h - band; y < r.h; y++ {
		for dx := -1; dx <= 1; dx++ {
			if float64(r.at(col+dx, y)) >= threshold {
				return true
			}
		}
	}
	return false
}
