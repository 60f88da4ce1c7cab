// Package cache implements the bounded, time-expiring result cache that
// fronts the search pipeline.
package cache

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/queryopt-mcp/pkg/types"
)

// entry is a cached result list with its creation time
type entry struct {
	results   []types.RankedResult
	createdAt time.Time
}

// Store is a thread-safe LRU cache of ranked results with TTL expiry.
// A single lock guards both the ordered map and the hit/miss counters so
// reported statistics stay consistent with cache contents. No blocking
// external call is ever made while the lock is held.
type Store struct {
	mu       sync.Mutex
	lru      *lru.Cache[[32]byte, *entry]
	ttl      time.Duration
	capacity int

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64

	// now is swappable for expiry tests
	now func() time.Time
}

// New creates a result cache with the given capacity and TTL.
// Non-positive capacity falls back to 1000 entries; non-positive TTL to
// one hour.
func New(capacity int, ttl time.Duration) (*Store, error) {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	s := &Store{
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}

	// Size-based evictions are counted via the callback. Explicit
	// removals (expiry, purge) also fire it, so those paths compensate.
	c, err := lru.NewWithEvict[[32]byte, *entry](capacity, func([32]byte, *entry) {
		s.evictions++
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create lru: %v", types.ErrCacheInvariant, err)
	}
	s.lru = c

	return s, nil
}

// Get returns the cached results for (query, filters, limit), or nil and
// false on a miss. A hit promotes the entry to most-recently-used. Entries
// older than the TTL are evicted immediately and reported as a miss.
func (s *Store) Get(query string, filters map[string]any, limit int) ([]types.RankedResult, bool) {
	key := Key(query, filters, limit)
	now := s.nowFunc()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lru.Get(key)
	if !ok {
		s.misses++
		return nil, false
	}

	if now.Sub(e.createdAt) >= s.ttl {
		s.lru.Remove(key)
		s.evictions-- // removal fired the evict callback; this was an expiry
		s.expirations++
		s.misses++
		return nil, false
	}

	s.hits++
	return types.CloneResults(e.results), true
}

// Put stores ranked results for (query, filters, limit). At capacity the
// least-recently-used entry is evicted first. The results are deep-copied
// so later caller mutations cannot reach the cached value.
func (s *Store) Put(query string, filters map[string]any, limit int, results []types.RankedResult) {
	key := Key(query, filters, limit)
	e := &entry{
		results:   types.CloneResults(results),
		createdAt: s.nowFunc(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Add on an existing key updates in place without firing the evict
	// callback, so replacements don't count as evictions.
	s.lru.Add(key, e)
}

// Len returns the current entry count
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Purge empties the cache without touching hit/miss counters
func (s *Store) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.lru.Len()
	s.lru.Purge()
	s.evictions -= uint64(n)
}

// Stats returns a snapshot of cache counters
func (s *Store) Stats() types.CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.CacheStats{
		Hits:        s.hits,
		Misses:      s.misses,
		Evictions:   s.evictions,
		Expirations: s.expirations,
		Size:        s.lru.Len(),
		Capacity:    s.capacity,
	}
}

func (s *Store) nowFunc() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Key computes the deterministic cache key for a query. The query text is
// case-folded and trimmed, filters are canonicalized by sorting on key name
// (list element order is preserved), and the result limit is mixed in, so
// two equivalent requests with differently-ordered filter maps share one
// entry.
func Key(query string, filters map[string]any, limit int) [32]byte {
	var data strings.Builder
	data.WriteString(strings.ToLower(strings.TrimSpace(query)))
	data.WriteString("|limit:")
	data.WriteString(strconv.Itoa(limit))

	if len(filters) > 0 {
		fields := make([]string, 0, len(filters))
		for f := range filters {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		for _, f := range fields {
			data.WriteString("|")
			data.WriteString(f)
			data.WriteString("=")
			writeFilterValue(&data, filters[f])
		}
	}

	return sha256.Sum256([]byte(data.String()))
}

// writeFilterValue renders a filter value deterministically for hashing
func writeFilterValue(b *strings.Builder, raw any) {
	switch v := raw.(type) {
	case nil:
		b.WriteString("<nil>")
	case []string:
		b.WriteString(strings.Join(v, ","))
	case []any:
		for i, elem := range v {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(b, "%v", elem)
		}
	default:
		fmt.Fprintf(b, "%v", v)
	}
}
