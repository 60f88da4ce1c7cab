package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/dshills/queryopt-mcp/internal/filter"
	"github.com/dshills/queryopt-mcp/pkg/types"
)

// filterColumns maps predicate fields to document columns. A predicate
// referencing any other field is rejected before it reaches SQL.
var filterColumns = map[string]string{
	"jurisdiction": "jurisdiction",
	"category":     "category",
	"program":      "program",
	"doc_type":     "doc_type",
	"source":       "source",
}

// SearchVector returns up to limit candidates by cosine distance
func (s *SQLiteStore) SearchVector(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error) {
	if VectorExtensionAvailable {
		return s.searchVectorOptimized(ctx, vector, limit, pred)
	}
	// Go-based computation for purego builds
	return s.searchVectorFallback(ctx, vector, limit, pred)
}

// searchVectorOptimized computes cosine distance at the database layer via
// the sqlite-vec extension
func (s *SQLiteStore) searchVectorOptimized(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error) {
	if limit <= 0 {
		return []types.RawHit{}, nil
	}

	queryVectorBlob := serializeVector(vector)

	query := `
		SELECT
			d.content, d.jurisdiction, d.category, d.program, d.doc_type, d.source,
			vec_distance_cosine(e.vector, ?) as distance
		FROM documents d
		INNER JOIN embeddings e ON d.id = e.document_id
		WHERE 1=1
	`
	args := []interface{}{queryVectorBlob}

	query, args, err := applyPredicate(query, args, pred)
	if err != nil {
		return nil, err
	}

	query += " ORDER BY distance ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]types.RawHit, 0, limit)
	for rows.Next() {
		hit, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}

// searchVectorFallback loads candidate vectors and computes cosine
// similarity in Go. Used when the sqlite-vec extension is not available.
func (s *SQLiteStore) searchVectorFallback(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error) {
	query := `
		SELECT
			d.content, d.jurisdiction, d.category, d.program, d.doc_type, d.source,
			e.vector
		FROM documents d
		INNER JOIN embeddings e ON d.id = e.document_id
		WHERE 1=1
	`
	args := []interface{}{}

	query, args, err := applyPredicate(query, args, pred)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]types.RawHit, 0, 256)
	for rows.Next() {
		var doc Document
		var blob []byte
		if err := rows.Scan(&doc.Content, &doc.Jurisdiction, &doc.Category,
			&doc.Program, &doc.DocType, &doc.Source, &blob); err != nil {
			return nil, err
		}

		stored := deserializeVector(blob)
		if len(stored) != len(vector) {
			continue // Dimension mismatch, skip
		}

		candidates = append(candidates, types.RawHit{
			Content:  doc.Content,
			Metadata: doc.Metadata(),
			Distance: 1.0 - cosineSimilarity(vector, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Ascending distance = best first
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// applyPredicate translates a normalized predicate into WHERE conditions
func applyPredicate(query string, args []interface{}, pred *filter.Predicate) (string, []interface{}, error) {
	if pred.IsEmpty() {
		return query, args, nil
	}

	for _, clause := range pred.Clauses {
		column, ok := filterColumns[clause.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown filter field %q", clause.Field)
		}

		if len(clause.Values) == 1 {
			query += " AND d." + column + " = ?"
			args = append(args, clause.Values[0])
			continue
		}

		query += " AND d." + column + " IN ("
		for i, v := range clause.Values {
			if i > 0 {
				query += ","
			}
			query += "?"
			args = append(args, v)
		}
		query += ")"
	}

	return query, args, nil
}

// scanHit reads one optimized-path row into a RawHit
func scanHit(rows *sql.Rows) (types.RawHit, error) {
	var doc Document
	var distance float64
	if err := rows.Scan(&doc.Content, &doc.Jurisdiction, &doc.Category,
		&doc.Program, &doc.DocType, &doc.Source, &distance); err != nil {
		return types.RawHit{}, fmt.Errorf("failed to scan result: %w", err)
	}
	return types.RawHit{
		Content:  doc.Content,
		Metadata: doc.Metadata(),
		Distance: distance,
	}, nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
