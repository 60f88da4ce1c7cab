package types

import "errors"

// Recoverable pipeline errors. These are absorbed at the optimizer boundary:
// the caller receives an empty result set and a sample with the failure
// recorded, never a raised error.
var (
	ErrEmbeddingFailure     = errors.New("embedding generation failed")
	ErrBackendSearchFailure = errors.New("backend search failed")
	ErrTimeoutExceeded      = errors.New("backend call timed out")
)

// Caller and internal errors. These propagate.
var (
	// ErrInvalidFilterShape reports a filter map the shaper cannot
	// normalize. Returned synchronously before any backend work.
	ErrInvalidFilterShape = errors.New("invalid filter shape")

	// ErrCacheInvariant indicates cache state that should be unreachable.
	// It is the only hard failure class: if the cache cannot be trusted,
	// degrading silently would serve stale or corrupt results.
	ErrCacheInvariant = errors.New("cache invariant violation")
)

// Domain errors for type validation
var (
	ErrInvalidRank  = errors.New("rank must be >= 1")
	ErrInvalidScore = errors.New("score must be between 0 and 1")
	ErrEmptyContent = errors.New("content cannot be empty")
	ErrEmptyQuery   = errors.New("query cannot be empty")
)
