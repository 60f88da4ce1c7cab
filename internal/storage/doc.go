// Package storage provides SQLite-based persistence for searchable
// documents and their vector embeddings.
//
// The storage layer is the concrete vector backend behind the optimizer's
// search primitive. It manages:
//   - Document text and filterable metadata
//   - Vector embeddings
//   - Nearest-neighbor queries with predicate filtering
//
// # Database Schema
//
// Tables:
//   - documents: content plus metadata columns (jurisdiction, category,
//     program, doc_type, source)
//   - embeddings: one vector blob per document
//   - schema_version: migration tracking
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStore("~/.queryopt/queryopt.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	doc := &storage.Document{
//	    Content:      "Qualified basis is determined under Section 42...",
//	    Jurisdiction: "CA",
//	    Category:     "compliance",
//	}
//	if err := store.UpsertDocument(ctx, doc); err != nil {
//	    log.Fatal(err)
//	}
//	err = store.UpsertEmbedding(ctx, &storage.Embedding{
//	    DocumentID: doc.ID,
//	    Vector:     vector,
//	})
//
// # Vector Search
//
//	hits, err := store.SearchVector(ctx, queryVector, 10, pred)
//	for _, hit := range hits {
//	    fmt.Printf("%.3f %s\n", hit.Distance, hit.Content)
//	}
//
// Hits are ordered by ascending cosine distance. The predicate is the
// normalized filter expression produced by the filter package; its fields
// map to metadata columns, and unknown fields are rejected before any SQL
// runs.
//
// # Build Tags
//
// Two build configurations are supported:
//
// CGO build (sqlite_vec tag) uses github.com/mattn/go-sqlite3 with the
// sqlite-vec extension, computing distance in SQL:
//
//	CGO_ENABLED=1 go build -tags "sqlite_vec"
//
// Pure Go build (default) uses modernc.org/sqlite and computes cosine
// similarity in Go over the filtered candidate set:
//
//	CGO_ENABLED=0 go build
package storage
