// Package metrics collects per-query samples and derives rolling aggregate
// statistics from them.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/dshills/queryopt-mcp/pkg/types"
)

// qpsWindow is the trailing interval queries-per-second is measured over
const qpsWindow = 60 * time.Second

// Recorder maintains a bounded, time-ordered history of query samples.
// Record and Snapshot share one lock; Snapshot copies the window out before
// doing percentile math so the lock is never held during sorting.
type Recorder struct {
	mu        sync.Mutex
	samples   []types.QuerySample
	retention int
	window    int
	total     int // Lifetime count, survives history trimming

	// now is swappable for QPS tests
	now func() time.Time
}

// NewRecorder creates a sample recorder. retention bounds the stored
// history (default 1000); window is how many recent samples aggregates are
// computed over (default 100).
func NewRecorder(retention, window int) *Recorder {
	if retention <= 0 {
		retention = 1000
	}
	if window <= 0 {
		window = 100
	}
	if window > retention {
		window = retention
	}
	return &Recorder{
		samples:   make([]types.QuerySample, 0, retention),
		retention: retention,
		window:    window,
		now:       time.Now,
	}
}

// Record appends a sample, dropping the oldest entries once the history
// exceeds its retention bound.
func (r *Recorder) Record(sample types.QuerySample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.samples = append(r.samples, sample)
	r.total++

	if len(r.samples) > r.retention {
		// Shift rather than reslice so the backing array doesn't pin
		// dropped samples
		n := copy(r.samples, r.samples[len(r.samples)-r.retention:])
		r.samples = r.samples[:n]
	}
}

// Len returns the current history length
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// Total returns the lifetime sample count
func (r *Recorder) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Trim compacts the history to at most max samples, keeping the newest.
// The memory governor calls this proactively; it is also safe to call with
// a max below the configured retention.
func (r *Recorder) Trim(max int) {
	if max < 0 {
		max = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.samples) <= max {
		return
	}
	kept := make([]types.QuerySample, max, r.retention)
	copy(kept, r.samples[len(r.samples)-max:])
	r.samples = kept
}

// Snapshot computes aggregate statistics over the most recent window of
// samples. All aggregates are zero-valued when no samples exist, never a
// crash.
func (r *Recorder) Snapshot() types.AggregateStats {
	r.mu.Lock()
	window := r.windowCopyLocked()
	total := r.total
	now := r.now()
	r.mu.Unlock()

	stats := types.AggregateStats{
		TotalQueries: total,
		WindowSize:   len(window),
	}
	if len(window) == 0 {
		return stats
	}

	durations := make([]time.Duration, len(window))
	var sum time.Duration
	var hits, failures int
	var embedSum, searchSum, filterSum time.Duration
	var uncached int

	for i, s := range window {
		durations[i] = s.TotalDuration
		sum += s.TotalDuration
		if s.CacheHit {
			hits++
		}
		if s.Failed {
			failures++
		}
		// Cache hits and precomputed matches have zero phase time by
		// definition; phase means cover only samples that ran the
		// pipeline
		if !s.CacheHit && !s.Precomputed {
			uncached++
			embedSum += s.EmbedDuration
			searchSum += s.SearchDuration
			filterSum += s.FilterDuration
		}
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	stats.MeanDuration = sum / time.Duration(len(window))
	stats.P50Duration = percentile(durations, 50)
	stats.P95Duration = percentile(durations, 95)
	stats.P99Duration = percentile(durations, 99)
	stats.CacheHitRate = float64(hits) / float64(len(window))
	stats.FailureCount = failures

	if uncached > 0 {
		stats.MeanEmbedDuration = embedSum / time.Duration(uncached)
		stats.MeanSearchDuration = searchSum / time.Duration(uncached)
		stats.MeanFilterDuration = filterSum / time.Duration(uncached)
	}

	// QPS is measured by timestamp over the trailing minute, not by
	// sample count
	cutoff := now.Add(-qpsWindow)
	recent := 0
	for _, s := range window {
		if s.Timestamp.After(cutoff) {
			recent++
		}
	}
	stats.QueriesPerSecond = float64(recent) / qpsWindow.Seconds()

	return stats
}

// windowCopyLocked returns a private copy of the most recent window.
// Caller must hold r.mu.
func (r *Recorder) windowCopyLocked() []types.QuerySample {
	n := len(r.samples)
	if n == 0 {
		return nil
	}
	start := n - r.window
	if start < 0 {
		start = 0
	}
	window := make([]types.QuerySample, n-start)
	copy(window, r.samples[start:])
	return window
}

// percentile returns the p-th percentile of sorted durations using the
// nearest-rank method
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
