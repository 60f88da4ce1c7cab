package types

import "time"

// AggregateStats is derived from the most recent window of query samples.
// It is recomputed on demand and never persisted independently of the
// history it derives from.
type AggregateStats struct {
	TotalQueries int
	WindowSize   int // Number of samples the aggregates were computed over

	MeanDuration time.Duration
	P50Duration  time.Duration
	P95Duration  time.Duration
	P99Duration  time.Duration

	CacheHitRate float64 // Fraction of window samples served from cache

	// QueriesPerSecond over the trailing 60 seconds, by timestamp
	QueriesPerSecond float64

	// Mean phase time across non-cache-hit samples in the window
	MeanEmbedDuration  time.Duration
	MeanSearchDuration time.Duration
	MeanFilterDuration time.Duration

	FailureCount int
}

// CacheStats is a point-in-time snapshot of cache counters
type CacheStats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
	Size        int
	Capacity    int
}

// HitRate returns the fraction of lookups served from cache
func (c CacheStats) HitRate() float64 {
	total := c.Hits + c.Misses
	if total == 0 {
		return 0
	}
	return float64(c.Hits) / float64(total)
}

// PerformanceReport combines aggregate and cache statistics with a 0-100
// score and textual recommendations. Created on demand; not retained.
type PerformanceReport struct {
	GeneratedAt     time.Time
	Stats           AggregateStats
	Cache           CacheStats
	Score           float64
	Recommendations []string
}
