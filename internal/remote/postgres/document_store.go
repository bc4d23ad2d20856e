// Package postgres backs the remote document store with a PostgreSQL table
// of JSON documents keyed by (owner, collection, doc_id). It is the
// self-hosted counterpart of the hosted document backends the sync engine
// was designed against.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/scrypster/placemark/internal/syncer"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	owner      TEXT NOT NULL,
	collection TEXT NOT NULL,
	doc_id     TEXT NOT NULL,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (owner, collection, doc_id)
)`

// DocumentStore implements syncer.DocumentStore over PostgreSQL.
type DocumentStore struct {
	db *sql.DB
}

// Open connects to PostgreSQL and ensures the documents table exists.
func Open(ctx context.Context, dsn string) (*DocumentStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure documents table: %w", err)
	}

	return &DocumentStore{db: db}, nil
}

// NewDocumentStore wraps an existing connection, used in tests.
func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Close releases the connection pool.
func (s *DocumentStore) Close() error {
	return s.db.Close()
}

// Get returns one document's JSON body, or syncer.ErrRemoteNotFound.
func (s *DocumentStore) Get(ctx context.Context, owner, collection, docID string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE owner = $1 AND collection = $2 AND doc_id = $3`,
		owner, collection, docID,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, syncer.ErrRemoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, docID, err)
	}
	return body, nil
}

// List returns all documents of a collection, keyed by document ID.
func (s *DocumentStore) List(ctx context.Context, owner, collection string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, body FROM documents WHERE owner = $1 AND collection = $2`,
		owner, collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %w", collection, err)
	}
	defer rows.Close()

	docs := make(map[string][]byte)
	for rows.Next() {
		var docID string
		var body []byte
		if err := rows.Scan(&docID, &body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs[docID] = body
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collection %s: %w", collection, err)
	}

	return docs, nil
}

// Set overwrites one document.
func (s *DocumentStore) Set(ctx context.Context, owner, collection, docID string, body []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (owner, collection, doc_id, body, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (owner, collection, doc_id)
		DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		owner, collection, docID, body,
	)
	if err != nil {
		return fmt.Errorf("failed to set document %s/%s: %w", collection, docID, err)
	}
	return nil
}

// Delete removes one document. Absent documents are a no-op.
func (s *DocumentStore) Delete(ctx context.Context, owner, collection, docID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE owner = $1 AND collection = $2 AND doc_id = $3`,
		owner, collection, docID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, docID, err)
	}
	return nil
}
