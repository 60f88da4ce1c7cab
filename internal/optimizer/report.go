package optimizer

import (
	"fmt"
	"time"

	"github.com/dshills/queryopt-mcp/pkg/types"
)

// Score penalty caps
const (
	maxLatencyPenalty = 50.0
	maxHitRatePenalty = 30.0
)

// PerformanceReport derives a 0-100 score and recommendations from current
// metrics and cache state. It reads snapshots only, so it is safe to call
// concurrently with in-flight searches and never blocks on one.
func (o *Optimizer) PerformanceReport() types.PerformanceReport {
	stats := o.recorder.Snapshot()
	cacheStats := o.cache.Stats()

	score := 100.0
	var recs []string

	// Latency penalty: proportional to how far the mean overshoots the
	// target, capped at 50 points
	target := o.cfg.TargetResponseTime
	if stats.WindowSize > 0 && target > 0 && stats.MeanDuration > target {
		over := float64(stats.MeanDuration-target) / float64(target)
		penalty := over * maxLatencyPenalty
		if penalty > maxLatencyPenalty {
			penalty = maxLatencyPenalty
		}
		score -= penalty
		recs = append(recs, o.latencyRecommendation(stats))
	}

	// Hit-rate penalty: proportional to the shortfall against the
	// target, capped at 30 points
	targetRate := o.cfg.TargetHitRate
	if stats.WindowSize > 0 && targetRate > 0 && stats.CacheHitRate < targetRate {
		deficit := (targetRate - stats.CacheHitRate) / targetRate
		penalty := deficit * maxHitRatePenalty
		if penalty > maxHitRatePenalty {
			penalty = maxHitRatePenalty
		}
		score -= penalty
		recs = append(recs, fmt.Sprintf(
			"cache hit rate %.0f%% is below the %.0f%% target; consider raising cache TTL (currently %v) or capacity (currently %d), or registering precomputed patterns for frequent queries",
			stats.CacheHitRate*100, targetRate*100, o.cfg.CacheTTL, o.cfg.CacheCapacity))
	}

	if stats.FailureCount > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d of the last %d queries degraded to empty results; check embedding provider and backend availability",
			stats.FailureCount, stats.WindowSize))
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	if len(recs) == 0 {
		recs = append(recs, "performance targets met; no action needed")
	}

	return types.PerformanceReport{
		GeneratedAt:     time.Now(),
		Stats:           stats,
		Cache:           cacheStats,
		Score:           score,
		Recommendations: recs,
	}
}

// latencyRecommendation names the pipeline phase dominating mean latency
func (o *Optimizer) latencyRecommendation(stats types.AggregateStats) string {
	embed := stats.MeanEmbedDuration
	search := stats.MeanSearchDuration
	filter := stats.MeanFilterDuration

	switch {
	case embed >= search && embed >= filter && embed > 0:
		return fmt.Sprintf(
			"mean latency %v exceeds the %v target, dominated by embedding (%v); consider a faster embedding provider or a larger embedding cache",
			stats.MeanDuration, o.cfg.TargetResponseTime, embed)
	case search >= embed && search >= filter && search > 0:
		return fmt.Sprintf(
			"mean latency %v exceeds the %v target, dominated by backend search (%v); consider tighter filters or a smaller result limit",
			stats.MeanDuration, o.cfg.TargetResponseTime, search)
	case filter > 0:
		return fmt.Sprintf(
			"mean latency %v exceeds the %v target, dominated by filter shaping (%v); reduce filter list sizes",
			stats.MeanDuration, o.cfg.TargetResponseTime, filter)
	default:
		// All phase means are zero: the window is mostly cache hits,
		// so the overhead is in the cache path itself
		return fmt.Sprintf(
			"mean latency %v exceeds the %v target with no dominant pipeline phase; profile cache lookup overhead",
			stats.MeanDuration, o.cfg.TargetResponseTime)
	}
}
