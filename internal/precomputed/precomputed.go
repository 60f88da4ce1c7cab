// Package precomputed short-circuits known high-frequency query patterns
// with canned result sets, bypassing embedding and backend search entirely.
package precomputed

import (
	"strings"

	"github.com/dshills/queryopt-mcp/pkg/types"
)

// Entry associates a query substring pattern with its precomputed results
type Entry struct {
	// Pattern is matched case-insensitively as a substring of the query
	Pattern string
	Results []types.RankedResult
}

// Store is a fixed lookup of precomputed query patterns. The entry set is
// configured at startup and never mutated, so lookups need no locking.
type Store struct {
	entries []Entry
}

// New creates a precomputed store from a fixed entry set. Patterns are
// normalized once at construction.
func New(entries []Entry) *Store {
	normalized := make([]Entry, 0, len(entries))
	for _, e := range entries {
		p := strings.ToLower(strings.TrimSpace(e.Pattern))
		if p == "" || len(e.Results) == 0 {
			continue
		}
		normalized = append(normalized, Entry{
			Pattern: p,
			Results: types.CloneResults(e.Results),
		})
	}
	return &Store{entries: normalized}
}

// Lookup returns the precomputed results for a query, or nil and false.
// Precomputed entries are not parameterized by filter, so any non-empty
// filter set disqualifies the lookup. Patterns are checked in registration
// order; the first substring match wins.
func (s *Store) Lookup(query string, filters map[string]any) ([]types.RankedResult, bool) {
	if s == nil || len(s.entries) == 0 || len(filters) > 0 {
		return nil, false
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, false
	}

	for _, e := range s.entries {
		if strings.Contains(q, e.Pattern) {
			return types.CloneResults(e.Results), true
		}
	}
	return nil, false
}

// Len returns the number of registered patterns
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}
