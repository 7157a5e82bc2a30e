// Package export writes analysis history to Parquet files for offline analysis
// using github.com/parquet-go/parquet-go.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	domain "github.com/rdflg/rdflg/internal/domain/analysis"
)

// AnalysisRow is one analysis record in the export file.
type AnalysisRow struct {
	ID          string   `parquet:"id,snappy"`
	UserID      *string  `parquet:"user_id,optional,snappy"`
	Service     string   `parquet:"service,snappy"`
	RiskScore   int32    `parquet:"risk_score,snappy"`
	Summary     string   `parquet:"summary,snappy"`
	ClauseCount *int32   `parquet:"clause_count,optional,snappy"`
	RedFlags    []string `parquet:"red_flags,list"`
	Cautions    []string `parquet:"cautions,list"`
	Positives   []string `parquet:"positives,list"`
	// Violations holds the JSON encoded {label,count} list.
	Violations        string    `parquet:"violations,snappy"`
	TotalUserAnalyses int32     `parquet:"total_user_analyses,snappy"`
	CreatedAt         time.Time `parquet:"created_at,snappy"`
}

// Rows converts records to export rows.
func Rows(records []*domain.Record) ([]AnalysisRow, error) {
	out := make([]AnalysisRow, 0, len(records))
	for _, r := range records {
		violations, err := json.Marshal(nonNil(r.Violations))
		if err != nil {
			return nil, fmt.Errorf("encode violations of %s: %w", r.ID, err)
		}
		row := AnalysisRow{
			ID:                string(r.ID),
			UserID:            r.UserID,
			Service:           r.Service,
			RiskScore:         int32(r.RiskScore),
			Summary:           r.Summary,
			RedFlags:          nonNil(r.RedFlags),
			Cautions:          nonNil(r.Cautions),
			Positives:         nonNil(r.Positives),
			Violations:        string(violations),
			TotalUserAnalyses: int32(r.TotalUserAnalyses),
			CreatedAt:         r.CreatedAt.UTC(),
		}
		if r.ClauseCount != nil {
			n := int32(*r.ClauseCount)
			row.ClauseCount = &n
		}
		out = append(out, row)
	}
	return out, nil
}

// WriteAnalyses writes records as Parquet to w.
func WriteAnalyses(w io.Writer, records []*domain.Record) error {
	rows, err := Rows(records)
	if err != nil {
		return err
	}
	writer := parquet.NewGenericWriter[AnalysisRow](w)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// WriteAnalysesFile writes records to a Parquet file at outputPath.
func WriteAnalysesFile(records []*domain.Record, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := WriteAnalyses(file, records); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
