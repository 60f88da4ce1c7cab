package types

// RawHit is a single candidate returned by the vector backend before ranking.
// Distance is the backend's cosine distance (lower is better). Metadata is
// opaque to the optimization layer and passed through to callers unchanged.
type RawHit struct {
	Content  string
	Metadata map[string]string
	Distance float64
}

// RankedResult represents a single ranked search result
type RankedResult struct {
	Content string
	Rank    int // Position in result set (1-based)

	// Score is similarity, computed as 1 - distance, in [0, 1]
	Score float64

	// Metadata carries backend fields (jurisdiction, category, etc.)
	// untouched by this layer
	Metadata map[string]string
}

// Validate checks if the ranked result is valid
func (r *RankedResult) Validate() error {
	if r.Rank < 1 {
		return ErrInvalidRank
	}

	if r.Score < 0 || r.Score > 1 {
		return ErrInvalidScore
	}

	if r.Content == "" {
		return ErrEmptyContent
	}

	return nil
}

// CloneResults deep-copies a result slice so cached values can never be
// mutated through a caller's reference
func CloneResults(src []RankedResult) []RankedResult {
	if src == nil {
		return nil
	}

	dst := make([]RankedResult, len(src))
	for i, r := range src {
		dst[i] = RankedResult{
			Content: r.Content,
			Rank:    r.Rank,
			Score:   r.Score,
		}
		if r.Metadata != nil {
			md := make(map[string]string, len(r.Metadata))
			for k, v := range r.Metadata {
				md[k] = v
			}
			dst[i].Metadata = md
		}
	}
	return dst
}
