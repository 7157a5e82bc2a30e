package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/rdflg/rdflg/internal/domain/analysis"
	"github.com/rdflg/rdflg/internal/infra/db/record"
)

const defaultLimit = 20

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save appends an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `INSERT INTO analyses (` + record.Columns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	row, err := record.Encode(a)
	if err != nil {
		return err
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = r.db.ExecContext(ctx, q, row.Args(createdAt.UTC())...)
	return err
}

// Latest returns the newest records across all users
func (r *AnalysisRepository) Latest(ctx context.Context, limit int) ([]*domain.Record, error) {
	const q = `
SELECT ` + record.Columns + `
FROM analyses
ORDER BY created_at DESC, id DESC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limitOrDefault(limit))
	if err != nil {
		return nil, err
	}
	return record.Scan(rows)
}

// ListByUser returns the newest records of one owner
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Record, error) {
	const q = `
SELECT ` + record.Columns + `
FROM analyses
WHERE user_id=?
ORDER BY created_at DESC, id DESC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, userID, limitOrDefault(limit))
	if err != nil {
		return nil, err
	}
	return record.Scan(rows)
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}
