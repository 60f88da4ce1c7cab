package storage

import (
	"context"
	"time"

	"github.com/dshills/queryopt-mcp/internal/filter"
	"github.com/dshills/queryopt-mcp/pkg/types"
)

// Store defines the interface for persisting documents and their embeddings
// and serving nearest-neighbor queries over them.
type Store interface {
	// Document operations
	UpsertDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id int64) (*Document, error)
	DeleteDocument(ctx context.Context, id int64) error
	CountDocuments(ctx context.Context) (int, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, emb *Embedding) error
	GetEmbedding(ctx context.Context, documentID int64) (*Embedding, error)

	// SearchVector returns up to limit candidates by cosine distance,
	// restricted by the predicate. Hits carry the document's metadata
	// fields for pass-through to callers.
	SearchVector(ctx context.Context, vector []float32, limit int, pred *filter.Predicate) ([]types.RawHit, error)

	// Database operations
	Close() error
}

// Document is one searchable text unit with its filterable metadata.
// The metadata columns (jurisdiction, category, program, doc_type, source)
// are the fields backend predicates may reference.
type Document struct {
	ID           int64
	Content      string
	Jurisdiction string
	Category     string
	Program      string
	DocType      string
	Source       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Embedding is a stored vector for one document
type Embedding struct {
	DocumentID int64
	Vector     []float32
	Dimension  int
	Model      string
	CreatedAt  time.Time
}

// Metadata returns the document's filterable fields as a pass-through map,
// omitting empty values
func (d *Document) Metadata() map[string]string {
	md := make(map[string]string, 5)
	if d.Jurisdiction != "" {
		md["jurisdiction"] = d.Jurisdiction
	}
	if d.Category != "" {
		md["category"] = d.Category
	}
	if d.Program != "" {
		md["program"] = d.Program
	}
	if d.DocType != "" {
		md["doc_type"] = d.DocType
	}
	if d.Source != "" {
		md["source"] = d.Source
	}
	return md
}
