package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/queryopt-mcp/internal/config"
	"github.com/dshills/queryopt-mcp/internal/filter"
	"github.com/dshills/queryopt-mcp/internal/precomputed"
	"github.com/dshills/queryopt-mcp/pkg/types"
)

func testEmbed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func testBackend(hits []types.RawHit) SearchFunc {
	return func(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error) {
		return hits, nil
	}
}

func defaultHits() []types.RawHit {
	return []types.RawHit{
		{Content: "doc a", Distance: 0.1, Metadata: map[string]string{"jurisdiction": "CA"}},
		{Content: "doc b", Distance: 0.3},
		{Content: "doc c", Distance: 0.8},
	}
}

func newTestOptimizer(t *testing.T, backend SearchFunc) *Optimizer {
	t.Helper()
	o, err := New(config.Default(), testEmbed, backend, Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return o
}

func TestNewValidation(t *testing.T) {
	cfg := config.Default()

	if _, err := New(cfg, nil, testBackend(nil), Options{}); err == nil {
		t.Error("expected error for nil embed function")
	}
	if _, err := New(cfg, testEmbed, nil, Options{}); err == nil {
		t.Error("expected error for nil backend function")
	}

	bad := cfg
	bad.CacheCapacity = -1
	if _, err := New(bad, testEmbed, testBackend(nil), Options{}); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestSearchPipeline(t *testing.T) {
	o := newTestOptimizer(t, testBackend(defaultHits()))

	results, sample, err := o.Search(context.Background(), "income limits", 10, nil, 0.5)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results above threshold, got %d", len(results))
	}
	if results[0].Content != "doc a" || results[0].Rank != 1 {
		t.Errorf("rank 1 = %q / %d, want doc a / 1", results[0].Content, results[0].Rank)
	}
	if sample.CacheHit || sample.Precomputed || sample.Failed {
		t.Errorf("fresh query sample flags wrong: %+v", sample)
	}
	if sample.ResultCount != 2 {
		t.Errorf("sample.ResultCount = %d, want 2", sample.ResultCount)
	}
	if sample.TotalDuration <= 0 {
		t.Error("expected positive total duration")
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	o := newTestOptimizer(t, testBackend(nil))

	_, _, err := o.Search(context.Background(), "", 10, nil, 0)
	if !errors.Is(err, types.ErrEmptyQuery) {
		t.Errorf("error = %v, want ErrEmptyQuery", err)
	}
}

func TestSearchCacheHit(t *testing.T) {
	var backendCalls atomic.Int64
	backend := func(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error) {
		backendCalls.Add(1)
		return defaultHits(), nil
	}
	o := newTestOptimizer(t, backend)

	ctx := context.Background()
	if _, _, err := o.Search(ctx, "income limits", 10, nil, 0); err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	results, sample, err := o.Search(ctx, "income limits", 10, nil, 0)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if !sample.CacheHit {
		t.Error("expected cache hit on repeat query")
	}
	if backendCalls.Load() != 1 {
		t.Errorf("backend calls = %d, want 1", backendCalls.Load())
	}
	if len(results) != 3 {
		t.Errorf("cached results = %d, want 3", len(results))
	}

	// Key canonicalization: case and whitespace variants hit too
	_, sample, err = o.Search(ctx, "  INCOME limits ", 10, nil, 0)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if !sample.CacheHit {
		t.Error("expected cache hit for normalized query variant")
	}
}

func TestSearchEmptyResultsNotCached(t *testing.T) {
	var backendCalls atomic.Int64
	backend := func(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error) {
		backendCalls.Add(1)
		return nil, nil
	}
	o := newTestOptimizer(t, backend)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		results, sample, err := o.Search(ctx, "no matches", 10, nil, 0)
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(results) != 0 {
			t.Fatalf("expected empty results, got %d", len(results))
		}
		if sample.CacheHit {
			t.Error("empty result set must not be served from cache")
		}
	}
	if backendCalls.Load() != 2 {
		t.Errorf("backend calls = %d, want 2 (negatives not cached)", backendCalls.Load())
	}
}

func TestSearchDegradedOnEmbedFailure(t *testing.T) {
	embed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("%w: provider unreachable", types.ErrEmbeddingFailure)
	}
	o, err := New(config.Default(), embed, testBackend(defaultHits()), Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	results, sample, err := o.Search(context.Background(), "income limits", 10, nil, 0)
	if err != nil {
		t.Fatalf("degraded search must not return an error, got %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", results)
	}
	if !sample.Failed || sample.FailureKind != types.FailureEmbedding {
		t.Errorf("sample = %+v, want Failed with embedding kind", sample)
	}

	if o.Stats().FailureCount != 1 {
		t.Errorf("FailureCount = %d, want 1", o.Stats().FailureCount)
	}
}

func TestSearchDegradedOnBackendFailure(t *testing.T) {
	backend := func(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error) {
		return nil, fmt.Errorf("%w: connection refused", types.ErrBackendSearchFailure)
	}
	o := newTestOptimizer(t, backend)

	results, sample, err := o.Search(context.Background(), "income limits", 10, nil, 0)
	if err != nil {
		t.Fatalf("degraded search must not return an error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
	if !sample.Failed || sample.FailureKind != types.FailureBackend {
		t.Errorf("sample = %+v, want Failed with backend kind", sample)
	}
}

func TestSearchDegradedOnBackendTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.BackendTimeout = 10 * time.Millisecond
	backend := func(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return defaultHits(), nil
		}
	}

	o, err := New(cfg, testEmbed, backend, Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	results, sample, err := o.Search(context.Background(), "income limits", 10, nil, 0)
	if err != nil {
		t.Fatalf("timed-out search must not return an error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
	if !sample.Failed || sample.FailureKind != types.FailureTimeout {
		t.Errorf("sample = %+v, want Failed with timeout kind", sample)
	}
}

func TestSearchInvalidFilterPropagates(t *testing.T) {
	var backendCalls atomic.Int64
	backend := func(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error) {
		backendCalls.Add(1)
		return defaultHits(), nil
	}
	o := newTestOptimizer(t, backend)

	filters := map[string]any{"jurisdiction": map[string]string{"bad": "shape"}}
	_, _, err := o.Search(context.Background(), "income limits", 10, filters, 0)
	if !errors.Is(err, types.ErrInvalidFilterShape) {
		t.Fatalf("error = %v, want ErrInvalidFilterShape", err)
	}
	if backendCalls.Load() != 0 {
		t.Error("malformed filter must not reach the backend")
	}
}

func TestSearchLimitClamping(t *testing.T) {
	var gotLimit atomic.Int64
	backend := func(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error) {
		gotLimit.Store(int64(limit))
		return nil, nil
	}
	o := newTestOptimizer(t, backend)
	ctx := context.Background()

	tests := []struct {
		name  string
		limit int
		want  int64
	}{
		{name: "ZeroDefaults", limit: 0, want: DefaultLimit},
		{name: "NegativeDefaults", limit: -3, want: DefaultLimit},
		{name: "ExcessiveCaps", limit: 500, want: MaxLimit},
		{name: "InRangeKept", limit: 25, want: 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := o.Search(ctx, "q "+tt.name, tt.limit, nil, 0); err != nil {
				t.Fatalf("Search() error: %v", err)
			}
			if gotLimit.Load() != tt.want {
				t.Errorf("backend limit = %d, want %d", gotLimit.Load(), tt.want)
			}
		})
	}
}

func TestSearchPrecomputed(t *testing.T) {
	var backendCalls atomic.Int64
	backend := func(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error) {
		backendCalls.Add(1)
		return defaultHits(), nil
	}

	entries := []precomputed.Entry{{
		Pattern: "income limits",
		Results: []types.RankedResult{{Content: "canned", Rank: 1, Score: 1.0}},
	}}
	o, err := New(config.Default(), testEmbed, backend, Options{Precomputed: entries})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx := context.Background()

	results, sample, err := o.Search(ctx, "2024 income limits", 10, nil, 0)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if !sample.Precomputed {
		t.Error("expected precomputed sample flag")
	}
	if results[0].Content != "canned" {
		t.Errorf("content = %q, want canned", results[0].Content)
	}
	if backendCalls.Load() != 0 {
		t.Error("precomputed match must not reach the backend")
	}

	// Filters bypass the precomputed path
	_, sample, err = o.Search(ctx, "2024 income limits", 10, map[string]any{"jurisdiction": "CA"}, 0)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if sample.Precomputed {
		t.Error("filtered query must not use precomputed results")
	}
	if backendCalls.Load() != 1 {
		t.Errorf("backend calls = %d, want 1", backendCalls.Load())
	}
}

func TestInvalidateCache(t *testing.T) {
	var backendCalls atomic.Int64
	backend := func(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error) {
		backendCalls.Add(1)
		return defaultHits(), nil
	}
	o := newTestOptimizer(t, backend)
	ctx := context.Background()

	o.Search(ctx, "income limits", 10, nil, 0)
	o.InvalidateCache()
	_, sample, err := o.Search(ctx, "income limits", 10, nil, 0)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if sample.CacheHit {
		t.Error("expected miss after invalidation")
	}
	if backendCalls.Load() != 2 {
		t.Errorf("backend calls = %d, want 2", backendCalls.Load())
	}
}

func TestConcurrentSearches(t *testing.T) {
	var backendCalls atomic.Int64
	backend := func(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error) {
		backendCalls.Add(1)
		return defaultHits(), nil
	}
	o := newTestOptimizer(t, backend)

	const goroutines = 32
	var g errgroup.Group
	for i := 0; i < goroutines; i++ {
		i := i
		g.Go(func() error {
			results, _, err := o.Search(context.Background(), fmt.Sprintf("query %d", i%4), 10, nil, 0)
			if err != nil {
				return err
			}
			if len(results) != 3 {
				return fmt.Errorf("got %d results, want 3", len(results))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent search error: %v", err)
	}

	stats := o.Stats()
	if stats.TotalQueries != goroutines {
		t.Errorf("TotalQueries = %d, want %d", stats.TotalQueries, goroutines)
	}

	// Once warm, every distinct query must be a hit
	for i := 0; i < 4; i++ {
		_, sample, err := o.Search(context.Background(), fmt.Sprintf("query %d", i), 10, nil, 0)
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if !sample.CacheHit {
			t.Errorf("query %d missed after warmup", i)
		}
	}
}

func TestPerformanceReportHealthy(t *testing.T) {
	o := newTestOptimizer(t, testBackend(defaultHits()))
	ctx := context.Background()

	// Warm the cache, then generate enough hits to clear the target rate
	for i := 0; i < 10; i++ {
		o.Search(ctx, "income limits", 10, nil, 0)
	}

	report := o.PerformanceReport()
	if report.Score != 100 {
		t.Errorf("Score = %v, want 100 for fast cache-heavy workload", report.Score)
	}
	if len(report.Recommendations) != 1 {
		t.Fatalf("expected exactly one recommendation, got %v", report.Recommendations)
	}
	if report.Recommendations[0] != "performance targets met; no action needed" {
		t.Errorf("recommendation = %q", report.Recommendations[0])
	}
	if report.GeneratedAt.IsZero() {
		t.Error("expected GeneratedAt to be set")
	}
	if report.Cache.Hits == 0 {
		t.Error("expected cache hits in report")
	}
}

func TestPerformanceReportSlowBackend(t *testing.T) {
	cfg := config.Default()
	cfg.TargetResponseTime = time.Millisecond
	cfg.TargetHitRate = 0 // isolate the latency penalty
	backend := func(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error) {
		time.Sleep(5 * time.Millisecond)
		return defaultHits(), nil
	}

	o, err := New(cfg, testEmbed, backend, Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		o.Search(ctx, fmt.Sprintf("query %d", i), 10, nil, 0)
	}

	report := o.PerformanceReport()
	if report.Score >= 100 {
		t.Errorf("Score = %v, want penalty for slow mean", report.Score)
	}
	if report.Score < 50 {
		t.Errorf("Score = %v, latency penalty alone must not exceed 50", report.Score)
	}
	if len(report.Recommendations) == 0 {
		t.Fatal("expected a latency recommendation")
	}
}

func TestPerformanceReportDegradedQueries(t *testing.T) {
	backend := func(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error) {
		return nil, types.ErrBackendSearchFailure
	}
	o := newTestOptimizer(t, backend)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		o.Search(ctx, fmt.Sprintf("query %d", i), 10, nil, 0)
	}

	report := o.PerformanceReport()
	found := false
	for _, rec := range report.Recommendations {
		if len(rec) > 0 && rec[0] == '3' {
			found = true
		}
	}
	if !found {
		t.Errorf("expected degradation recommendation naming 3 failures, got %v", report.Recommendations)
	}
}

func TestPerformanceReportEmptyWindow(t *testing.T) {
	o := newTestOptimizer(t, testBackend(nil))

	report := o.PerformanceReport()
	if report.Score != 100 {
		t.Errorf("Score = %v, want 100 with no traffic", report.Score)
	}
	if report.Stats.WindowSize != 0 {
		t.Errorf("WindowSize = %d, want 0", report.Stats.WindowSize)
	}
}
