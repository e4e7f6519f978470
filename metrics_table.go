package img2aa

import "math"

// MetricsTable maps glyphs to advance widths and remembers the order in
// which the character set listed them, so database builds and candidate
// ties iterate deterministically.
type MetricsTable struct {
	order  []rune
	widths map[rune]float64

	Half, Full, Thin float64
}

// newMetricsTable measures every glyph of charset with the font. Space
// widths come from params when set, otherwise from the font. Every width
// is at least one pixel so the decoder always advances.
func newMetricsTable(f Font, charset []rune, p Params) *MetricsTable {
	t := &MetricsTable{widths: make(map[rune]float64, len(charset)+3)}

	half := p.HalfSpaceWidth
	if half <= 0 {
		half, _ = f.Advance(HalfSpace)
	}
	half = math.Max(1, half)

	full := p.FullSpaceWidth
	if full <= 0 {
		if adv, ok := f.Advance(FullSpace); ok && adv > half {
			full = adv
		} else {
			full = 2 * half
		}
	}

	thin := p.ThinSpaceWidth
	if thin <= 0 {
		if adv, ok := f.Advance(ThinSpace); ok && adv > 0 && adv < half {
			thin = adv
		} else {
			thin = math.Max(1, math.Round(half/3))
		}
	}

	t.Half, t.Full, t.Thin = half, full, thin
	t.set(HalfSpace, half)
	t.set(FullSpace, full)
	t.set(ThinSpace, thin)

	for _, r := range charset {
		if _, ok := t.widths[r]; ok {
			continue
		}
		adv, ok := f.Advance(r)
		if !ok {
			continue
		}
		t.set(r, math.Max(1, adv))
	}
	return t
}

func (t *MetricsTable) set(r rune, w float64) {
	if _, exists := t.widths[r]; !exists {
		t.order = append(t.order, r)
	}
	t.widths[r] = w
}

// Width returns the advance width of r.
func (t *MetricsTable) Width(r rune) (float64, bool) {
	if t == nil {
		return 0, false
	}
	w, ok := t.widths[r]
	return w, ok
}

// Glyphs returns the glyphs in insertion order.
func (t *MetricsTable) Glyphs() []rune {
	return append([]rune(nil), t.order...)
}

// Len returns the number of entries, including the three spaces.
func (t *MetricsTable) Len() int {
	return len(t.order)
}
