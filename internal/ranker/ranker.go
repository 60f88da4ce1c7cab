// Package ranker converts raw backend hits into scored, thresholded,
// limited output.
package ranker

import (
	"sort"

	"github.com/dshills/queryopt-mcp/pkg/types"
)

// Rank scores raw hits and returns the qualifying results in rank order.
//
// Each hit's distance becomes a similarity score (1 - distance). Hits below
// the threshold are discarded. Rank is assigned 1-based by descending score;
// ties keep the backend's original order, since the backend already returns
// approximately-sorted candidates. The output is truncated to limit after
// sorting. An empty input or a threshold nothing meets yields an empty
// slice, never an error.
func Rank(hits []types.RawHit, threshold float64, limit int) []types.RankedResult {
	results := make([]types.RankedResult, 0, len(hits))
	for _, hit := range hits {
		score := 1.0 - hit.Distance
		if score < threshold {
			continue
		}
		results = append(results, types.RankedResult{
			Content:  hit.Content,
			Score:    score,
			Metadata: hit.Metadata,
		})
	}

	// Stable sort preserves backend order among equal scores
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	for i := range results {
		results[i].Rank = i + 1
	}

	return results
}
