// Package record maps analysis records to the relational "analyses" table shared by every SQL store.
package record

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domain "github.com/rdflg/rdflg/internal/domain/analysis"
)

// Columns lists the analyses columns in Args/Dest order.
const Columns = `id, user_id, service, risk_score, summary, clause_count, red_flags, cautions, positives, violations, total_user_analyses, created_at`

// Row is the storage shape of one analysis. List fields hold JSON arrays.
type Row struct {
	ID                string
	UserID            sql.NullString
	Service           string
	RiskScore         int
	Summary           string
	ClauseCount       sql.NullInt64
	RedFlags          string
	Cautions          string
	Positives         string
	Violations        string
	TotalUserAnalyses int
}

// Encode converts a record into a row.
func Encode(r *domain.Record) (Row, error) {
	row := Row{
		ID:                string(r.ID),
		Service:           orDefault(r.Service, domain.DefaultService),
		RiskScore:         r.RiskScore,
		Summary:           orDefault(r.Summary, domain.DefaultSummary),
		TotalUserAnalyses: r.TotalUserAnalyses,
	}
	if r.UserID != nil {
		row.UserID = sql.NullString{String: *r.UserID, Valid: true}
	}
	if r.ClauseCount != nil {
		row.ClauseCount = sql.NullInt64{Int64: int64(*r.ClauseCount), Valid: true}
	}
	var err error
	if row.RedFlags, err = encodeList(r.RedFlags); err != nil {
		return Row{}, err
	}
	if row.Cautions, err = encodeList(r.Cautions); err != nil {
		return Row{}, err
	}
	if row.Positives, err = encodeList(r.Positives); err != nil {
		return Row{}, err
	}
	if row.Violations, err = encodeList(r.Violations); err != nil {
		return Row{}, err
	}
	return row, nil
}

// Args returns insert arguments in Columns order.
func (row Row) Args(createdAt any) []any {
	return []any{
		row.ID, row.UserID, row.Service, row.RiskScore, row.Summary, row.ClauseCount,
		row.RedFlags, row.Cautions, row.Positives, row.Violations, row.TotalUserAnalyses, createdAt,
	}
}

// Dest returns scan destinations in Columns order.
func (row *Row) Dest(createdAt any) []any {
	return []any{
		&row.ID, &row.UserID, &row.Service, &row.RiskScore, &row.Summary, &row.ClauseCount,
		&row.RedFlags, &row.Cautions, &row.Positives, &row.Violations, &row.TotalUserAnalyses, createdAt,
	}
}

// Decode converts a scanned row back into a record.
func (row Row) Decode(createdAt time.Time) (*domain.Record, error) {
	r := &domain.Record{
		ID:                domain.RecordID(row.ID),
		Service:           row.Service,
		RiskScore:         row.RiskScore,
		Summary:           row.Summary,
		TotalUserAnalyses: row.TotalUserAnalyses,
		CreatedAt:         createdAt.UTC(),
	}
	if row.UserID.Valid {
		u := row.UserID.String
		r.UserID = &u
	}
	if row.ClauseCount.Valid {
		n := int(row.ClauseCount.Int64)
		r.ClauseCount = &n
	}
	r.RedFlags = []string{}
	r.Cautions = []string{}
	r.Positives = []string{}
	r.Violations = []domain.IssueCount{}
	if err := decodeList(row.RedFlags, &r.RedFlags); err != nil {
		return nil, fmt.Errorf("decode red_flags of %s: %w", row.ID, err)
	}
	if err := decodeList(row.Cautions, &r.Cautions); err != nil {
		return nil, fmt.Errorf("decode cautions of %s: %w", row.ID, err)
	}
	if err := decodeList(row.Positives, &r.Positives); err != nil {
		return nil, fmt.Errorf("decode positives of %s: %w", row.ID, err)
	}
	if err := decodeList(row.Violations, &r.Violations); err != nil {
		return nil, fmt.Errorf("decode violations of %s: %w", row.ID, err)
	}
	return r, nil
}

// Scan reads all rows produced by a SELECT of Columns and closes them.
func Scan(rows *sql.Rows) ([]*domain.Record, error) {
	defer rows.Close()
	out := []*domain.Record{}
	for rows.Next() {
		var row Row
		var created Timestamp
		if err := rows.Scan(row.Dest(&created)...); err != nil {
			return nil, err
		}
		rec, err := row.Decode(created.Time)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func encodeList[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(s string, dst any) error {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s), dst)
}

// orDefault returns def when the input is empty/whitespace
func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
