package img2aa

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wbrown/img2aa/internal/metrics"
)

// Engine holds the font and character set state shared by every line
// decode: the selected mode, the metrics table, rendered glyphs and, in
// vector mode, the glyph database. Rebuild is the only writer; decodes
// take a read lock, so a rebuild waits for in-flight lines.
type Engine struct {
	mu sync.RWMutex

	params     Params
	logger     *zap.Logger
	classifier Classifier
	embedder   Embedder

	font    Font
	charset []rune
	mode    Mode
	table   *MetricsTable
	glyphs  map[rune]*raster
	allowed map[rune]bool
	vocab   []rune
	db      *GlyphDB
	built   bool

	notReadyLogged atomic.Bool

	// observeExtend is called for every beam extension; tests use it to
	// check cursor monotonicity.
	observeExtend func(parent, child *beam)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithParams sets the decoder constants.
func WithParams(p Params) EngineOption {
	return func(e *Engine) {
		e.params = p.withDefaults()
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClassifier sets the classifier backend.
func WithClassifier(c Classifier) EngineOption {
	return func(e *Engine) {
		e.classifier = c
	}
}

// WithEmbedder sets the embedding backend.
func WithEmbedder(emb Embedder) EngineOption {
	return func(e *Engine) {
		e.embedder = emb
	}
}

// NewEngine creates an engine. It cannot decode until Rebuild is called.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		params: DefaultParams(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rebuild selects the mode for font and charset and rebuilds the metrics
// table and, in vector mode, the glyph database. Rebuilding with the
// same font identity and character set is a no-op.
func (e *Engine) Rebuild(ctx context.Context, f Font, charset []rune) error {
	return e.rebuild(ctx, f, charset, nil)
}

// RebuildWithGlyphDB is Rebuild with a prebuilt database, used instead
// of embedding every glyph when vector mode is selected.
func (e *Engine) RebuildWithGlyphDB(ctx context.Context, f Font, charset []rune, db *GlyphDB) error {
	return e.rebuild(ctx, f, charset, db)
}

func (e *Engine) rebuild(ctx context.Context, f Font, charset []rune, prebuilt *GlyphDB) error {
	if f.Face == nil {
		return ErrNoFont
	}
	charset = dedupeRunes(charset)
	if len(charset) == 0 {
		return ErrEmptyCharset
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.built && e.font.ID == f.ID && equalRunes(e.charset, charset) {
		if prebuilt != nil {
			e.logger.Info("Prebuilt glyph db not used, engine unchanged",
				zap.String("font", f.ID))
		}
		return nil
	}

	start := time.Now()
	var vocab []rune
	if e.classifier != nil {
		vocab = e.classifier.Vocabulary()
	}
	mode := SelectMode(f.ID, charset, vocab)
	table := newMetricsTable(f, charset, e.params)

	var db *GlyphDB
	if mode == ModeVector {
		if prebuilt != nil {
			if err := checkGlyphDB(prebuilt, f, table); err != nil {
				return err
			}
			db = prebuilt
		} else {
			var err error
			db, err = BuildGlyphDB(ctx, f, table, e.embedder, e.params)
			if err != nil {
				return fmt.Errorf("rebuild glyph db: %w", err)
			}
		}
	} else if prebuilt != nil {
		e.logger.Info("Prebuilt glyph db not used in classifier mode",
			zap.String("font", f.ID))
	}

	glyphs := make(map[rune]*raster, table.Len())
	allowed := make(map[rune]bool, len(charset))
	for _, r := range table.Glyphs() {
		w, _ := table.Width(r)
		glyphs[r] = renderGlyph(f, r, w)
	}
	for _, r := range charset {
		allowed[r] = true
	}

	e.font = f
	e.charset = charset
	e.mode = mode
	e.table = table
	e.glyphs = glyphs
	e.allowed = allowed
	e.vocab = vocab
	e.db = db
	e.built = true
	e.notReadyLogged.Store(false)

	elapsed := time.Since(start)
	metrics.GlyphDBRebuildDuration.WithLabelValues(mode.String()).Observe(elapsed.Seconds())
	e.logger.Info("Engine rebuilt",
		zap.String("font", f.ID),
		zap.String("mode", mode.String()),
		zap.Int("glyphs", len(charset)),
		zap.Duration("duration", elapsed),
	)
	return nil
}

func checkGlyphDB(db *GlyphDB, f Font, table *MetricsTable) error {
	if db.FontID != f.ID {
		return fmt.Errorf("%w: font %q, want %q", ErrGlyphDBMismatch, db.FontID, f.ID)
	}
	var want []rune
	for _, r := range table.Glyphs() {
		if r != HalfSpace && r != FullSpace && r != ThinSpace {
			want = append(want, r)
		}
	}
	if !equalRunes(db.Charset, want) {
		return fmt.Errorf("%w: charset differs", ErrGlyphDBMismatch)
	}
	return db.Validate()
}

// Mode returns the mode selected by the last rebuild.
func (e *Engine) Mode() Mode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// GlyphDB returns the current glyph database, nil in classifier mode.
func (e *Engine) GlyphDB() *GlyphDB {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.db
}

// Metrics returns the current metrics table.
func (e *Engine) Metrics() *MetricsTable {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.table
}

// LineHeight returns the pixel height of a text line in the current font.
func (e *Engine) LineHeight() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.font.LineHeight()
}

// ready reports whether the backend for the selected mode can serve.
// Callers hold the read lock.
func (e *Engine) ready(ctx context.Context) error {
	if !e.built {
		return fmt.Errorf("%w: engine not built", ErrBackendNotReady)
	}
	var backend interface{}
	switch e.mode {
	case ModeClassifier:
		if e.classifier == nil {
			return fmt.Errorf("%w: no classifier", ErrBackendNotReady)
		}
		backend = e.classifier
	default:
		if e.embedder == nil || e.db == nil {
			return fmt.Errorf("%w: no embedder", ErrBackendNotReady)
		}
		backend = e.embedder
	}
	if rc, ok := backend.(ReadinessChecker); ok {
		if err := rc.Ready(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrBackendNotReady, err)
		}
	}
	return nil
}

// glyphWidth falls back to measuring glyphs outside the table, such as
// hatching characters, without storing them.
func (e *Engine) glyphWidth(r rune) (float64, bool) {
	if w, ok := e.table.Width(r); ok {
		return w, true
	}
	w, ok := e.font.Advance(r)
	if !ok || w <= 0 {
		return 0, false
	}
	if w < 1 {
		w = 1
	}
	return w, true
}

func (e *Engine) glyphBitmap(r rune) *raster {
	if g, ok := e.glyphs[r]; ok {
		return g
	}
	w, ok := e.glyphWidth(r)
	if !ok {
		return nil
	}
	return renderGlyph(e.font, r, w)
}

func dedupeRunes(rs []rune) []rune {
	seen := make(map[rune]bool, len(rs))
	out := make([]rune, 0, len(rs))
	for _, r := range rs {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
