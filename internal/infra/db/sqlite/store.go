// Package sqlite is a single-file analysis store for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	domain "github.com/rdflg/rdflg/internal/domain/analysis"
	"github.com/rdflg/rdflg/internal/infra/db/migrations"
	"github.com/rdflg/rdflg/internal/infra/db/record"
)

const defaultLimit = 20

// Store implements analysis.Repository on SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and brings its schema up to date.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one writer at a time; avoids SQLITE_BUSY under the async writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if err := migrations.Apply(db, migrations.SQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Save(ctx context.Context, a *domain.Record) error {
	const q = `INSERT INTO analyses (` + record.Columns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	row, err := record.Encode(a)
	if err != nil {
		return err
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err := s.db.ExecContext(ctx, q, row.Args(record.FormatText(createdAt))...); err != nil {
		return fmt.Errorf("inserting analysis: %w", err)
	}
	return nil
}

func (s *Store) Latest(ctx context.Context, limit int) ([]*domain.Record, error) {
	const q = `SELECT ` + record.Columns + ` FROM analyses ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	return record.Scan(rows)
}

func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Record, error) {
	const q = `SELECT ` + record.Columns + ` FROM analyses WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, userID, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("querying analyses for user: %w", err)
	}
	return record.Scan(rows)
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}
