// Package optimizer composes the caching, shaping, ranking, and metrics
// components around one embedding call and one backend search call.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dshills/queryopt-mcp/internal/cache"
	"github.com/dshills/queryopt-mcp/internal/config"
	"github.com/dshills/queryopt-mcp/internal/filter"
	"github.com/dshills/queryopt-mcp/internal/memgov"
	"github.com/dshills/queryopt-mcp/internal/metrics"
	"github.com/dshills/queryopt-mcp/internal/precomputed"
	"github.com/dshills/queryopt-mcp/internal/ranker"
	"github.com/dshills/queryopt-mcp/pkg/types"
)

// Default request bounds
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// EmbedFunc turns query text into a vector. Failures are recoverable: the
// optimizer degrades to an empty result set and records the outcome.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// SearchFunc is the backend's nearest-neighbor query primitive. Failures
// and timeouts are recoverable the same way embedding failures are.
type SearchFunc func(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error)

// Options carries optional optimizer collaborators
type Options struct {
	// Precomputed seeds the pattern store for known high-frequency
	// queries; nil disables the shortcut path
	Precomputed []precomputed.Entry

	// Logger receives filter truncation diagnostics; nil uses the
	// stdlib default
	Logger *log.Logger
}

// Optimizer is the query performance-optimization layer. It owns its cache
// and metrics state explicitly; callers hold and pass a reference rather
// than going through process-wide singletons.
type Optimizer struct {
	cfg      config.Config
	embed    EmbedFunc
	backend  SearchFunc
	cache    *cache.Store
	shaper   *filter.Shaper
	pre      *precomputed.Store
	recorder *metrics.Recorder
	governor *memgov.Governor
}

// New creates an optimizer from an immutable configuration and the two
// external-call boundaries.
func New(cfg config.Config, embed EmbedFunc, backend SearchFunc, opts Options) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if embed == nil {
		return nil, errors.New("embed function is required")
	}
	if backend == nil {
		return nil, errors.New("backend search function is required")
	}

	store, err := cache.New(cfg.CacheCapacity, cfg.CacheTTL)
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder(cfg.MetricsRetention, cfg.MetricsWindow)

	o := &Optimizer{
		cfg:      cfg,
		embed:    embed,
		backend:  backend,
		cache:    store,
		shaper:   filter.NewShaper(cfg.MaxFilterValues, opts.Logger),
		recorder: recorder,
		governor: memgov.New(cfg.MemoryThresholdMB, cfg.ReclaimInterval, cfg.MetricsRetention, recorder),
	}

	if len(opts.Precomputed) > 0 {
		o.pre = precomputed.New(opts.Precomputed)
	}

	return o, nil
}

// Search runs one optimized query. The pipeline is linear: cache check,
// precomputed check, memory pre-check, embed, filter shaping, backend
// search, ranking, cache write-through, metrics. Backend and embedding
// failures degrade to an empty result set with the failure recorded on the
// returned sample; the only errors Search itself returns are caller errors
// (empty query, invalid filter shape) and cache invariant violations.
func (o *Optimizer) Search(ctx context.Context, query string, limit int, filters map[string]any, threshold float64) ([]types.RankedResult, types.QuerySample, error) {
	start := time.Now()

	if query == "" {
		return nil, types.QuerySample{}, types.ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}

	key := cache.Key(query, filters, limit)

	// 1. Cache
	if results, ok := o.cache.Get(query, filters, limit); ok {
		sample := o.newSample(key, query, start)
		sample.CacheHit = true
		sample.ResultCount = len(results)
		o.recorder.Record(sample)
		return results, sample, nil
	}

	// 2. Precomputed patterns (only when no filters apply)
	if results, ok := o.pre.Lookup(query, filters); ok {
		sample := o.newSample(key, query, start)
		sample.Precomputed = true
		sample.ResultCount = len(results)
		o.recorder.Record(sample)
		return results, sample, nil
	}

	// 3. Memory pre-check before the expensive phases
	o.governor.MaybeReclaim()

	// 4. Embedding
	embedStart := time.Now()
	vector, err := o.embed(ctx, query)
	embedDur := time.Since(embedStart)
	if err != nil {
		kind := types.FailureEmbedding
		if errors.Is(err, context.DeadlineExceeded) {
			kind = types.FailureTimeout
		}
		return o.degrade(key, query, start, kind, func(s *types.QuerySample) {
			s.EmbedDuration = embedDur
		})
	}

	// 5. Filter shaping. A malformed filter map is a caller error and
	// propagates; it never reaches the backend.
	filterStart := time.Now()
	pred, err := o.shaper.Shape(filters)
	filterDur := time.Since(filterStart)
	if err != nil {
		return nil, types.QuerySample{}, err
	}

	// 6. Backend search, bounded by the configured timeout
	searchCtx, cancel := context.WithTimeout(ctx, o.cfg.BackendTimeout)
	defer cancel()

	searchStart := time.Now()
	hits, err := o.backend(searchCtx, vector, limit, pred)
	searchDur := time.Since(searchStart)
	if err != nil {
		kind := types.FailureBackend
		if errors.Is(err, context.DeadlineExceeded) {
			kind = types.FailureTimeout
		}
		return o.degrade(key, query, start, kind, func(s *types.QuerySample) {
			s.EmbedDuration = embedDur
			s.FilterDuration = filterDur
			s.SearchDuration = searchDur
		})
	}

	// 7. Ranking
	results := ranker.Rank(hits, threshold, limit)

	// 8. Write-through, skipping empty result sets so negatives aren't
	// cached for the full TTL
	if len(results) > 0 {
		o.cache.Put(query, filters, limit, results)
	}

	// 9. Record and return
	sample := o.newSample(key, query, start)
	sample.EmbedDuration = embedDur
	sample.FilterDuration = filterDur
	sample.SearchDuration = searchDur
	sample.ResultCount = len(results)
	o.recorder.Record(sample)

	return results, sample, nil
}

// CacheStats returns a snapshot of result-cache counters
func (o *Optimizer) CacheStats() types.CacheStats {
	return o.cache.Stats()
}

// Stats returns current aggregate query statistics
func (o *Optimizer) Stats() types.AggregateStats {
	return o.recorder.Snapshot()
}

// InvalidateCache drops all cached results, e.g. after the underlying
// corpus changes
func (o *Optimizer) InvalidateCache() {
	o.cache.Purge()
}

// degrade records a failed sample and returns the empty, well-formed
// result pair the caller expects during backend outages
func (o *Optimizer) degrade(key [32]byte, query string, start time.Time, kind types.FailureKind, fill func(*types.QuerySample)) ([]types.RankedResult, types.QuerySample, error) {
	sample := o.newSample(key, query, start)
	sample.Failed = true
	sample.FailureKind = kind
	if fill != nil {
		fill(&sample)
	}
	o.recorder.Record(sample)
	return []types.RankedResult{}, sample, nil
}

// newSample builds the base sample for a completed query
func (o *Optimizer) newSample(key [32]byte, query string, start time.Time) types.QuerySample {
	return types.QuerySample{
		KeyHash:       key,
		Query:         types.TruncateQuery(query),
		Timestamp:     start,
		TotalDuration: time.Since(start),
		MemoryBytes:   memgov.HeapBytes(),
	}
}
