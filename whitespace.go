package img2aa

import (
	"math"

	"github.com/wbrown/img2aa/internal/metrics"
)

// spaceContext is everything whitespace generation needs to know about
// the parent hypothesis. Positions are in line coordinates.
type spaceContext struct {
	cursor float64
	// nextInk is the first ink column at or after the cursor, or the
	// line width when inkAhead is false.
	nextInk  float64
	inkAhead bool
	leading  bool
	last     rune
	bbs      bool
	thin     bool
}

// halfAllowed applies the BBS rule: no half-width space at the start of
// a line or directly after another one.
func (sc spaceContext) halfAllowed() bool {
	return !(sc.bbs && (sc.leading || sc.last == HalfSpace))
}

// spaceCandidates proposes the whitespace variants that fit before the
// next ink. It always returns at least one candidate.
func spaceCandidates(sc spaceContext, t *MetricsTable, p Params) []candidate {
	type variant struct {
		glyph rune
		width float64
		base  float64
	}
	variants := make([]variant, 0, 3)
	if sc.halfAllowed() {
		variants = append(variants, variant{HalfSpace, t.Half, p.HalfSpacePenalty})
	}
	variants = append(variants, variant{FullSpace, t.Full, 0})
	if sc.thin {
		variants = append(variants, variant{ThinSpace, t.Thin, p.ThinSpacePenalty})
	}

	var out []candidate
	for _, v := range variants {
		landing := sc.cursor + v.width
		waived := v.glyph == HalfSpace && !sc.thin
		if landing-sc.nextInk > p.SpaceTolerance && !waived {
			continue
		}
		score := v.base
		if sc.inkAhead {
			score += alignBonus(sc.nextInk-landing, t, sc.thin, p.AlignBonus)
		}
		out = append(out, candidate{
			glyph:   v.glyph,
			advance: v.width,
			score:   score,
			kind:    kindSpace,
		})
	}
	if len(out) > 0 {
		return out
	}

	forced := candidate{glyph: FullSpace, advance: t.Full, score: p.ForcedPenalty, kind: kindForced}
	if sc.halfAllowed() {
		forced.glyph, forced.advance = HalfSpace, t.Half
	}
	return []candidate{forced}
}

// alignBonus rewards a space whose landing point meets the next ink, or
// leaves a gap that whole half or thin spaces can fill.
func alignBonus(gap float64, t *MetricsTable, thin bool, bonus float64) float64 {
	if math.Abs(gap) <= 1 {
		return bonus
	}
	if gap <= 0 {
		return 0
	}
	if isMultiple(gap, t.Half) || (thin && isMultiple(gap, t.Thin)) {
		return bonus / 2
	}
	return 0
}

func isMultiple(v, unit float64) bool {
	if unit <= 0 {
		return false
	}
	q := v / unit
	return math.Abs(q-math.Round(q)) < 1e-6
}

// blankCandidates handles positions with no usable glyph. A painted
// position yields a single hatching candidate; otherwise whitespace is
// proposed. penalty is added to everything returned.
func (d *lineDecoder) blankCandidates(b *beam, penalty float64) []candidate {
	if c, ok := d.hatchCandidate(b); ok {
		c.score += penalty
		metrics.FallbackTotal.WithLabelValues("hatch").Inc()
		return []candidate{c}
	}

	ink := d.inkOf(b)
	x := d.band.origin + int(b.cursor)
	limit := d.band.origin + d.width
	col, found := nextInkColumn(ink, x, limit, d.p.NextInkMass)
	sc := spaceContext{
		cursor:   b.cursor,
		nextInk:  float64(col - d.band.origin),
		inkAhead: found,
		leading:  len(b.text) == 0,
		last:     b.last,
		bbs:      d.req.BBSMode,
		thin:     d.req.ThinSpace,
	}
	cands := spaceCandidates(sc, d.e.table, d.p)
	for i := range cands {
		cands[i].score += penalty
		if cands[i].kind == kindForced {
			metrics.FallbackTotal.WithLabelValues("forced").Inc()
		} else {
			metrics.FallbackTotal.WithLabelValues("space").Inc()
		}
	}
	return cands
}

// hatchCandidate samples the paint mask at the cursor on the line's
// center row and cycles the matching pattern.
func (d *lineDecoder) hatchCandidate(b *beam) (candidate, bool) {
	x := d.band.origin + int(b.cursor)
	var pattern string
	switch samplePaint(d.req.PaintMask, x, d.req.LineCenterY, d.p.PaintAlpha) {
	case paintBlue:
		pattern = d.req.BluePattern
	case paintRed:
		pattern = d.req.RedPattern
	default:
		return candidate{}, false
	}
	g, ok := NextHatch(pattern, b.last)
	if !ok {
		return candidate{}, false
	}
	g = d.bbsSpace(g, b)
	w, ok := d.e.glyphWidth(g)
	if !ok {
		return candidate{}, false
	}
	c := candidate{glyph: g, advance: w, score: d.p.HatchBonus, kind: kindHatch}
	if !isSpace(g) {
		c.bitmap = d.e.glyphBitmap(g)
	}
	return c, true
}
