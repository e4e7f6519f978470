package img2aa

import (
	"context"
	"math"
)

// draftLine is a rough transcription of the line below. Only its pixels
// are used: raster feeds the below channel of classifier patches and
// topRow marks columns whose top rows carry ink for vector connectivity.
type draftLine struct {
	raster *raster
	topRow []bool
}

// runDraft greedily decodes the next line without context: blanks
// advance by a half-width space, anything else commits the single best
// glyph if it is confident enough. It returns nil when the next line
// lies outside the features.
func (d *lineDecoder) runDraft(ctx context.Context) *draftLine {
	f := d.req.Features
	lineHeight := d.band.height
	centerY := d.req.LineCenterY + lineHeight
	if centerY-lineHeight/2 >= f.Height {
		return nil
	}
	band := newLineBand(f, centerY, lineHeight, d.band.origin)
	scratch := newRaster(band.width, lineHeight)
	step := d.e.table.Half

	for cursor, n := 0.0, 0; cursor < float64(d.width) && n < 2*d.width; n++ {
		x := band.origin + int(cursor)
		if meanInk(band.ink, x, d.probe) < d.p.DraftBlankDensity {
			cursor += step
			continue
		}
		g, ok := d.draftGlyph(ctx, band, scratch, cursor)
		if !ok {
			cursor += step
			continue
		}
		w, _ := d.e.glyphWidth(g)
		if bm := d.e.glyphBitmap(g); bm != nil {
			scratch.stamp(bm, x)
		}
		cursor += math.Max(1, w)
	}

	return &draftLine{raster: scratch, topRow: topRow(scratch, d.p.InkThreshold)}
}

// draftGlyph is the single best recognition at cursor, or false when it
// does not clear the draft confidence bar.
func (d *lineDecoder) draftGlyph(ctx context.Context, band *lineBand, scratch *raster, cursor float64) (rune, bool) {
	if d.e.mode == ModeClassifier {
		patch := d.sampler.patchAt(band, band.ink, scratch, cursor)
		probs, ok := d.recognize(ctx, patch, cursor)
		if !ok || len(probs) == 0 {
			return 0, false
		}
		best := topIndices(probs, 1)[0]
		if best >= len(d.e.vocab) || float64(probs[best]) < d.p.DraftConfidence {
			return 0, false
		}
		g := d.e.vocab[best]
		if isSpace(g) || !d.e.allowed[g] {
			return 0, false
		}
		return g, true
	}

	patch := d.sampler.patchAt(band, band.ink, nil, cursor)
	vec, ok := d.recognize(ctx, patch, cursor)
	if !ok {
		return 0, false
	}
	matches := d.e.db.Nearest(Normalize(vec), 1)
	if len(matches) == 0 || matches[0].Similarity < d.p.DraftConfidence {
		return 0, false
	}
	g := d.e.db.Entries[matches[0].Index].Glyph
	return g, d.e.allowed[g]
}

// topRow marks columns with ink in the top quarter of r.
func topRow(r *raster, threshold float64) []bool {
	band := r.h / 4
	if band < 1 {
		band = 1
	}
	out := make([]bool, r.w)
	for x := 0; x < r.w; x++ {
		for y := 0; y < band; y++ {
			if float64(r.at(x, y)) >= threshold {
				out[x] = true
				break
			}
		}
	}
	return out
}
