// Package sqlite provides a SQLite implementation of the RelationalDB interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ersonp/pjud-tracker/internal/domain/ports"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/config"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// querier is the subset of *sql.DB and *sql.Tx the queries run on.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository implements ports.RelationalDB using SQLite.
type Repository struct {
	*queries
	db   *sql.DB
	path string
}

var _ ports.RelationalDB = (*Repository)(nil)

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// One connection: SQLite has a single writer, pragmas are per
	// connection, and :memory: databases are per connection too.
	db.SetMaxOpenConns(1)

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return newRepository(db, cfg.Path), nil
}

func newRepository(db *sql.DB, path string) *Repository {
	return &Repository{
		queries: &queries{q: db},
		db:      db,
		path:    path,
	}
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// RunInTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (r *Repository) RunInTx(ctx context.Context, fn func(q ports.Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&queries{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Collection cases tracked against the portal
	CREATE TABLE IF NOT EXISTS cases (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		legal_subject TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		winner TEXT,
		simulated INTEGER NOT NULL DEFAULT 0,
		role TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		court TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status);

	-- Case events; the chain lives only in previous/next pointers
	CREATE TABLE IF NOT EXISTS case_events (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL REFERENCES cases(id),
		title TEXT NOT NULL,
		source_party TEXT NOT NULL DEFAULT '',
		target_party TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		simulated INTEGER NOT NULL DEFAULT 0,
		procedure_date TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		previous_event_id TEXT REFERENCES case_events(id),
		next_event_id TEXT REFERENCES case_events(id)
	);
	CREATE INDEX IF NOT EXISTS idx_case_events_case ON case_events(case_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_case_events_next ON case_events(next_event_id) WHERE next_event_id IS NOT NULL;

	-- One document per event
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE REFERENCES case_events(id),
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		storage_key TEXT,
		generated INTEGER NOT NULL DEFAULT 0,
		simulated INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Append-only ingestion ledger
	CREATE TABLE IF NOT EXISTS folio_ledger (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		folio INTEGER NOT NULL,
		case_number TEXT NOT NULL,
		year INTEGER NOT NULL,
		description TEXT NOT NULL,
		tag TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		event_id TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(folio, case_number, year, description)
	);
	CREATE INDEX IF NOT EXISTS idx_folio_ledger_case ON folio_ledger(case_number, year);

	-- Suggestions offered after a milestone
	CREATE TABLE IF NOT EXISTS case_event_suggestions (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL REFERENCES case_events(id),
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		score REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_suggestions_event ON case_event_suggestions(event_id);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
