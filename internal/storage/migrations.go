package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
)

// ErrNoMigration indicates no migration has been applied yet.
var ErrNoMigration = errors.New("no migration")

// Migration is a single versioned schema change. Statements run inside one
// transaction together with the version bookkeeping, so a failed migration
// leaves the schema at the previous version.
type Migration struct {
	Version uint
	Name    string
	SQL     string
}

// MigrationRunner applies in-code migrations in ascending version order,
// tracking the current version in a schema_migrations table. A migration
// failure is fatal: the store must not be used afterwards.
type MigrationRunner struct {
	db         *sql.DB
	migrations []Migration
}

// NewMigrationRunner creates a runner for the given database and migration
// set. It ensures the schema_migrations tracking table exists.
func NewMigrationRunner(db *sql.DB, migrations []Migration) (*MigrationRunner, error) {
	if db == nil {
		return nil, fmt.Errorf("migrations: database connection is required")
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return nil, fmt.Errorf("migrations: failed to create schema table: %w", err)
	}

	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	return &MigrationRunner{db: db, migrations: sorted}, nil
}

// Up applies all pending migrations. Returns nil if already up-to-date.
func (r *MigrationRunner) Up() error {
	current, err := r.Version()
	if err != nil && !errors.Is(err, ErrNoMigration) {
		return fmt.Errorf("migrations: failed to get current version: %w", err)
	}

	for _, m := range r.migrations {
		if m.Version <= current {
			continue
		}

		tx, err := r.db.Begin()
		if err != nil {
			return fmt.Errorf("migrations: failed to begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrations: failed to apply version %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrations: failed to record version %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrations: failed to commit version %d: %w", m.Version, err)
		}
	}

	return nil
}

// Version returns the highest applied migration version.
// Returns ErrNoMigration when no migration has been applied.
func (r *MigrationRunner) Version() (uint, error) {
	var version uint
	err := r.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("migrations: failed to query version: %w", err)
	}

	if version == 0 {
		return 0, ErrNoMigration
	}

	return version, nil
}
