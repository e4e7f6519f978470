package embcache

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"github.com/wbrown/img2aa"
)

type countingEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *countingEmbedder) Embed(_ context.Context, _ img2aa.Patch) ([]float32, error) {
	m.calls++
	return m.vec, m.err
}

type readyEmbedder struct {
	countingEmbedder
	readyErr error
}

func (m *readyEmbedder) Ready(context.Context) error { return m.readyErr }

func testPatch(v float32) img2aa.Patch {
	return img2aa.Patch{
		Width:    2,
		Height:   1,
		Channels: [][]float32{{v, 0}},
	}
}

func newCacheTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "test_embedding_cache_total"},
		[]string{"result"},
	)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{0.6, 0.8}}
	total := newCacheTotal()
	ce := New(inner, NewMemoryStore(), "test:", total, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		vec, err := ce.Embed(ctx, testPatch(1))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(vec) != 2 || vec[0] != 0.6 || vec[1] != 0.8 {
			t.Fatalf("unexpected vector: %v", vec)
		}
	}
	if inner.calls != 1 {
		t.Errorf("Expected 1 inner call, got %d", inner.calls)
	}
	if got := counterValue(t, total.WithLabelValues("hit")); got != 2 {
		t.Errorf("Expected 2 hits, got %v", got)
	}
	if got := counterValue(t, total.WithLabelValues("miss")); got != 1 {
		t.Errorf("Expected 1 miss, got %v", got)
	}
}

func TestEmbed_DistinctPatchesDistinctKeys(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{1, 0}}
	ms := NewMemoryStore()
	ce := New(inner, ms, "test:", nil, nil)
	ctx := context.Background()

	if _, err := ce.Embed(ctx, testPatch(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := ce.Embed(ctx, testPatch(0.5)); err != nil {
		t.Fatal(err)
	}
	if ms.Len() != 2 {
		t.Errorf("Expected 2 cached keys, got %d", ms.Len())
	}
	if inner.calls != 2 {
		t.Errorf("Expected 2 inner calls, got %d", inner.calls)
	}
}

func TestEmbed_InnerErrorNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("model unloaded")}
	ms := NewMemoryStore()
	ce := New(inner, ms, "test:", nil, zap.NewNop())

	if _, err := ce.Embed(context.Background(), testPatch(1)); err == nil {
		t.Fatal("expected error from inner embedder")
	}
	if ms.Len() != 0 {
		t.Errorf("Expected nothing cached, got %d keys", ms.Len())
	}
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return []byte{1, 2, 3}, nil
}

func (brokenStore) Set(context.Context, string, []byte) error {
	return errors.New("read only")
}

func TestEmbed_CorruptCacheFallsThrough(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{1}}
	ce := New(inner, brokenStore{}, "test:", nil, zap.NewNop())

	vec, err := ce.Embed(context.Background(), testPatch(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 1 || inner.calls != 1 {
		t.Errorf("Expected inner embedder to serve, got %v after %d calls", vec, inner.calls)
	}
}

func TestCacheKeyPrefix(t *testing.T) {
	ce := New(&countingEmbedder{}, NewMemoryStore(), "img2aa:emb:", nil, nil)
	key := ce.cacheKey(testPatch(1))
	if !strings.HasPrefix(key, "img2aa:emb:") {
		t.Errorf("Expected key prefix, got %q", key)
	}
	if key != ce.cacheKey(testPatch(1)) {
		t.Error("Expected stable key for equal patches")
	}
}

func TestReadyForwardsInner(t *testing.T) {
	inner := &readyEmbedder{readyErr: errors.New("loading")}
	ce := New(inner, NewMemoryStore(), "", nil, nil)
	if err := ce.Ready(context.Background()); err == nil {
		t.Error("Expected inner readiness error")
	}

	plain := New(&countingEmbedder{}, NewMemoryStore(), "", nil, nil)
	if err := plain.Ready(context.Background()); err != nil {
		t.Errorf("Expected ready, got %v", err)
	}
}

func TestBytesToVector_Invalid(t *testing.T) {
	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for truncated data")
	}
}
