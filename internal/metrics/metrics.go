package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Decoder Prometheus metrics.
var (
	LinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "img2aa",
			Name:      "lines_total",
			Help:      "Total number of decoded lines",
		},
		[]string{"mode", "result"}, // "ok" / "empty" / "not_ready"
	)

	DecodeSteps = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "img2aa",
			Name:      "decode_steps",
			Help:      "Beam search steps per line",
			Buckets:   prometheus.ExponentialBuckets(4, 2, 10),
		},
	)

	InferenceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "img2aa",
			Name:      "inference_errors_total",
			Help:      "Backend calls that failed during decoding",
		},
		[]string{"backend"},
	)

	FallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "img2aa",
			Name:      "fallback_candidates_total",
			Help:      "Candidates produced without glyph recognition",
		},
		[]string{"kind"}, // "hatch" / "space" / "forced"
	)

	GlyphDBRebuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "img2aa",
			Name:      "glyph_db_rebuild_duration_seconds",
			Help:      "Duration of font or character set rebuilds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"mode"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "img2aa",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registerOnce sync.Once

// Register registers the decoder metrics with the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			LinesTotal,
			DecodeSteps,
			InferenceErrorsTotal,
			FallbackTotal,
			GlyphDBRebuildDuration,
			EmbeddingCacheTotal,
		)
	})
}
