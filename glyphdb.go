package img2aa

import (
	"bytes"
	"compress/gzip"
	"container/heap"
	"context"
	"encoding/gob"
	"fmt"
	"io"
)

// Bitmap is an exported intensity raster so database files can be
// serialized with gob.
type Bitmap struct {
	W, H int
	Pix  []float32
}

func bitmapOf(r *raster) Bitmap {
	return Bitmap{W: r.w, H: r.h, Pix: append([]float32(nil), r.pix...)}
}

func (b Bitmap) raster() *raster {
	return &raster{w: b.W, h: b.H, pix: b.Pix}
}

// GlyphDBEntry is one glyph of the vector database. EntryAnchorX and
// ExitAnchorX are the horizontal ink centroids of the glyph's top and
// bottom bands, nil when the band has no ink.
type GlyphDBEntry struct {
	Glyph        rune
	Embedding    []float32
	Advance      float64
	Bitmap       Bitmap
	EntryAnchorX *float64
	ExitAnchorX  *float64
}

// GlyphDB is the embedding database for vector mode. It is rebuilt from
// scratch whenever the font or character set changes and is read-only
// while decoding.
type GlyphDB struct {
	FontID  string
	Charset []rune
	Dim     int
	Entries []GlyphDBEntry
}

// Match is a database hit.
type Match struct {
	Index      int
	Similarity float64
}

// BuildGlyphDB renders each non-space glyph of the table, embeds it, and
// records its bitmap and anchors.
func BuildGlyphDB(
	ctx context.Context,
	f Font,
	table *MetricsTable,
	emb Embedder,
	p Params,
) (*GlyphDB, error) {
	if emb == nil {
		return nil, ErrBackendNotReady
	}
	db := &GlyphDB{FontID: f.ID}
	for _, r := range table.Glyphs() {
		if r == HalfSpace || r == FullSpace || r == ThinSpace {
			continue
		}
		db.Charset = append(db.Charset, r)
		if isSpace(r) {
			continue
		}
		adv, _ := table.Width(r)
		bm := renderGlyph(f, r, adv)
		vec, err := emb.Embed(ctx, glyphPatch(f, bm, p))
		if err != nil {
			return nil, fmt.Errorf("embed glyph %q: %w", r, err)
		}
		vec = Normalize(vec)
		if db.Dim == 0 {
			db.Dim = len(vec)
		} else if len(vec) != db.Dim {
			return nil, fmt.Errorf("glyph %q: %w: got %d, want %d",
				r, ErrDimMismatch, len(vec), db.Dim)
		}
		entry, exit := anchors(bm, p.InkThreshold)
		db.Entries = append(db.Entries, GlyphDBEntry{
			Glyph:        r,
			Embedding:    vec,
			Advance:      adv,
			Bitmap:       bitmapOf(bm),
			EntryAnchorX: entry,
			ExitAnchorX:  exit,
		})
	}
	return db, nil
}

// anchors returns the ink centroids of the top and bottom quarter of a
// glyph bitmap.
func anchors(g *raster, threshold float64) (entry, exit *float64) {
	band := g.h / 4
	if band < 1 {
		band = 1
	}
	centroid := func(y0, y1 int) *float64 {
		var mass, moment float64
		for y := y0; y < y1; y++ {
			for x := 0; x < g.w; x++ {
				v := float64(g.at(x, y))
				if v < threshold {
					continue
				}
				mass += v
				moment += v * (float64(x) + 0.5)
			}
		}
		if mass == 0 {
			return nil
		}
		c := moment / mass
		return &c
	}
	return centroid(0, band), centroid(g.h-band, g.h)
}

// Nearest returns the k entries most similar to the unit vector q,
// ordered by similarity and then by database order.
func (db *GlyphDB) Nearest(q []float32, k int) []Match {
	if db == nil || k <= 0 || len(q) != db.Dim {
		return nil
	}
	pq := make(matchHeap, 0, k+1)
	for i := range db.Entries {
		m := Match{Index: i, Similarity: dot(q, db.Entries[i].Embedding)}
		if pq.Len() < k {
			heap.Push(&pq, m)
		} else if m.Similarity > pq[0].Similarity {
			heap.Pop(&pq)
			heap.Push(&pq, m)
		}
	}
	out := make([]Match, pq.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&pq).(Match)
	}
	return out
}

// matchHeap is a min-heap on similarity; among equals the later entry
// sits on top so earlier entries win ties.
type matchHeap []Match

func (h matchHeap) Len() int { return len(h) }
func (h matchHeap) Less(i, j int) bool {
	if h[i].Similarity != h[j].Similarity {
		return h[i].Similarity < h[j].Similarity
	}
	return h[i].Index > h[j].Index
}
func (h matchHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *matchHeap) Push(x interface{}) {
	*h = append(*h, x.(Match))
}
func (h *matchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	m := old[n-1]
	*h = old[:n-1]
	return m
}

// SaveGlyphDB writes db as gzip-compressed gob.
func SaveGlyphDB(w io.Writer, db *GlyphDB) error {
	gz := gzip.NewWriter(w)
	if err := gob.NewEncoder(gz).Encode(db); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode glyph db: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to close gzip: %w", err)
	}
	return nil
}

// LoadGlyphDB reads a database written by SaveGlyphDB.
func LoadGlyphDB(r io.Reader) (*GlyphDB, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var db GlyphDB
	if err := gob.NewDecoder(gz).Decode(&db); err != nil {
		return nil, fmt.Errorf("failed to decode glyph db: %w", err)
	}
	if err := db.Validate(); err != nil {
		return nil, err
	}
	return &db, nil
}

// Validate checks that every entry can be searched and stamped: each
// embedding has Dim values, each advance is at least one pixel and each
// bitmap holds W*H pixels.
func (db *GlyphDB) Validate() error {
	if len(db.Entries) > 0 && db.Dim <= 0 {
		return fmt.Errorf("%w: dimension %d", ErrDimMismatch, db.Dim)
	}
	for i, ent := range db.Entries {
		if len(ent.Embedding) != db.Dim {
			return fmt.Errorf("entry %d (%q): %w: got %d, want %d",
				i, ent.Glyph, ErrDimMismatch, len(ent.Embedding), db.Dim)
		}
		if ent.Advance < 1 {
			return fmt.Errorf("%w: entry %d (%q) advance %v",
				ErrGlyphDBMismatch, i, ent.Glyph, ent.Advance)
		}
		if ent.Bitmap.W < 0 || ent.Bitmap.H < 0 || len(ent.Bitmap.Pix) != ent.Bitmap.W*ent.Bitmap.H {
			return fmt.Errorf("%w: entry %d (%q) bitmap %dx%d with %d pixels",
				ErrGlyphDBMismatch, i, ent.Glyph, ent.Bitmap.W, ent.Bitmap.H, len(ent.Bitmap.Pix))
		}
	}
	return nil
}

// LoadGlyphDBBytes is LoadGlyphDB over an in-memory file.
func LoadGlyphDBBytes(data []byte) (*GlyphDB, error) {
	return LoadGlyphDB(bytes.NewReader(data))
}
