// Package types provides shared type definitions for the QueryOpt MCP server.
//
// This package defines the domain types exchanged between the optimizer
// pipeline components: raw backend hits, ranked results, per-query samples,
// aggregate statistics, and performance reports.
//
// # Core Types
//
// RawHit is what the vector backend returns before the ranking stage:
//
//	hit := types.RawHit{
//	    Content:  "Section 42 income limits apply to...",
//	    Metadata: map[string]string{"jurisdiction": "CA", "category": "compliance"},
//	    Distance: 0.18,
//	}
//
// RankedResult is the scored, thresholded output callers receive. Scores are
// similarity values (1 - distance) normalized to [0, 1], with rank assigned
// 1-based by descending score:
//
//	result := types.RankedResult{
//	    Content: hit.Content,
//	    Score:   0.82,
//	    Rank:    1,
//	}
//
// QuerySample records the timing and outcome of a single executed query.
// Samples are immutable; the metrics recorder owns the rolling history they
// are appended to.
//
// # Error Taxonomy
//
// Recoverable errors (ErrEmbeddingFailure, ErrBackendSearchFailure,
// ErrTimeoutExceeded) are absorbed at the optimizer boundary and surface
// only through QuerySample.FailureKind. ErrInvalidFilterShape is a caller
// error reported synchronously. ErrCacheInvariant is the one hard failure
// class; it indicates an internal bug rather than an environmental fault.
package types
