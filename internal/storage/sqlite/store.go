// Package sqlite implements storage.RecordStore on SQLite using the CGO-free
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/placemark/internal/storage"
)

// RecordStore implements storage.RecordStore using SQLite.
type RecordStore struct {
	db *sql.DB
}

// Open opens a SQLite database, configures WAL mode, and applies migrations.
// A migration failure is fatal: no store is returned and the caller must not
// retry without operator intervention.
func Open(dsn string) (*RecordStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes at the engine and avoids SQLITE_BUSY under load;
	// WAL mode lets readers proceed without blocking the writer. The
	// application layers above do no locking of their own.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Callers wait instead of getting an immediate SQLITE_BUSY when the
	// connection is held by another goroutine.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Note deletion cascades from place deletion at the engine level.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	runner, err := storage.NewMigrationRunner(db, migrations)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create migration runner: %w", err)
	}

	if err := runner.Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to run migrations: %w", err)
	}

	return &RecordStore{db: db}, nil
}

// DB exposes the underlying connection for components that need raw access
// (the migration runner in tests). Prefer the RecordStore methods.
func (s *RecordStore) DB() *sql.DB {
	return s.db
}

// ClearAll wipes places, notes, travel entries, and settings in one
// transaction. Notes go with their places via the FK cascade.
func (s *RecordStore) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, stmt := range []string{
		"DELETE FROM places",
		"DELETE FROM travel_entries",
		"DELETE FROM settings",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to clear local data: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}

	return nil
}

// Close releases the underlying database resources.
func (s *RecordStore) Close() error {
	return s.db.Close()
}

// nullableString converts an empty string to NULL for storage.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullableMillis converts a zero epoch-millisecond timestamp to NULL.
func nullableMillis(ms int64) interface{} {
	if ms == 0 {
		return nil
	}
	return ms
}

// nullableInt converts a zero int to NULL.
func nullableInt(v int) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

// boolToInt converts a bool to the 0/1 integer SQLite representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
