package types

import "time"

// FailureKind classifies why a query degraded to an empty result set
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureEmbedding FailureKind = "embedding"
	FailureBackend   FailureKind = "backend"
	FailureTimeout   FailureKind = "timeout"
)

// MaxSampleQueryLen bounds how much query text a sample retains
const MaxSampleQueryLen = 120

// QuerySample is one record per executed query. Samples are immutable once
// created; the metrics recorder appends them to a rolling history.
type QuerySample struct {
	KeyHash   [32]byte
	Query     string // Truncated to MaxSampleQueryLen for storage
	Timestamp time.Time

	// Phase timings. Cache hits and precomputed matches have zero phase
	// time by definition.
	TotalDuration  time.Duration
	EmbedDuration  time.Duration
	SearchDuration time.Duration
	FilterDuration time.Duration

	ResultCount int
	CacheHit    bool
	Precomputed bool

	// MemoryBytes is the process heap footprint when the query completed
	MemoryBytes uint64

	Failed      bool
	FailureKind FailureKind
}

// TruncateQuery shortens query text for sample storage
func TruncateQuery(q string) string {
	if len(q) <= MaxSampleQueryLen {
		return q
	}
	return q[:MaxSampleQueryLen]
}
