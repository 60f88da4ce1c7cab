package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Document operations

// UpsertDocument inserts a document or updates it in place when ID is set
func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *Document) error {
	now := time.Now()

	if doc.ID == 0 {
		query := `
			INSERT INTO documents (content, jurisdiction, category, program, doc_type, source, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		result, err := s.db.ExecContext(ctx, query,
			doc.Content, doc.Jurisdiction, doc.Category, doc.Program,
			doc.DocType, doc.Source, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		doc.ID = id
		doc.CreatedAt = now
		doc.UpdatedAt = now
		return nil
	}

	query := `
		UPDATE documents
		SET content = ?, jurisdiction = ?, category = ?, program = ?, doc_type = ?, source = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		doc.Content, doc.Jurisdiction, doc.Category, doc.Program,
		doc.DocType, doc.Source, now, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	doc.UpdatedAt = now
	return nil
}

// GetDocument retrieves a document by ID
func (s *SQLiteStore) GetDocument(ctx context.Context, id int64) (*Document, error) {
	query := `
		SELECT id, content, jurisdiction, category, program, doc_type, source, created_at, updated_at
		FROM documents WHERE id = ?
	`
	doc := &Document{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.Content, &doc.Jurisdiction, &doc.Category,
		&doc.Program, &doc.DocType, &doc.Source, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// DeleteDocument removes a document and its embedding (cascade)
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CountDocuments returns the total document count
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Embedding operations

// UpsertEmbedding stores or replaces the embedding for a document
func (s *SQLiteStore) UpsertEmbedding(ctx context.Context, emb *Embedding) error {
	if emb.DocumentID == 0 {
		return fmt.Errorf("embedding requires a document ID")
	}
	if len(emb.Vector) == 0 {
		return fmt.Errorf("embedding vector cannot be empty")
	}

	now := time.Now()
	query := `
		INSERT INTO embeddings (document_id, vector, dimension, model, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			model = excluded.model,
			created_at = excluded.created_at
	`
	_, err := s.db.ExecContext(ctx, query,
		emb.DocumentID, serializeVector(emb.Vector), len(emb.Vector), emb.Model, now)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	emb.Dimension = len(emb.Vector)
	emb.CreatedAt = now
	return nil
}

// GetEmbedding retrieves the embedding for a document
func (s *SQLiteStore) GetEmbedding(ctx context.Context, documentID int64) (*Embedding, error) {
	query := `
		SELECT document_id, vector, dimension, model, created_at
		FROM embeddings WHERE document_id = ?
	`
	emb := &Embedding{}
	var blob []byte
	var model sql.NullString
	err := s.db.QueryRowContext(ctx, query, documentID).Scan(
		&emb.DocumentID, &blob, &emb.Dimension, &model, &emb.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}
	emb.Vector = deserializeVector(blob)
	emb.Model = model.String
	return emb, nil
}
