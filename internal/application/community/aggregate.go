package community

import (
	"sort"
	"strings"

	domain "github.com/rdflg/rdflg/internal/domain/analysis"
)

// Field selects one label list of a record.
type Field func(*domain.Record) []string

func RedFlags(r *domain.Record) []string  { return r.RedFlags }
func Cautions(r *domain.Record) []string  { return r.Cautions }
func Positives(r *domain.Record) []string { return r.Positives }

// Tally counts every label found in the given fields across records.
// The result is sorted by count descending; ties keep first-seen order.
func Tally(records []*domain.Record, fields ...Field) []domain.IssueCount {
	index := map[string]int{}
	table := []domain.IssueCount{}
	for _, r := range records {
		if r == nil {
			continue
		}
		for _, f := range fields {
			for _, label := range f(r) {
				if strings.TrimSpace(label) == "" {
					continue
				}
				if i, ok := index[label]; ok {
					table[i].Count++
					continue
				}
				index[label] = len(table)
				table = append(table, domain.IssueCount{Label: label, Count: 1})
			}
		}
	}
	sort.SliceStable(table, func(i, j int) bool { return table[i].Count > table[j].Count })
	return table
}

// Top keeps the k most frequent entries. k <= 0 keeps everything.
func Top(table []domain.IssueCount, k int) []domain.IssueCount {
	if k <= 0 || len(table) <= k {
		return table
	}
	return table[:k]
}

// Distinct returns the first k distinct labels of one field, in history order.
func Distinct(records []*domain.Record, field Field, k int) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range records {
		if r == nil {
			continue
		}
		for _, label := range field(r) {
			if strings.TrimSpace(label) == "" {
				continue
			}
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			out = append(out, label)
			if k > 0 && len(out) == k {
				return out
			}
		}
	}
	return out
}

// Report is the community issue overview served by the API and the CLI.
type Report struct {
	TotalReports int                 `json:"totalReports"`
	RedFlags     []domain.IssueCount `json:"redFlags"`
	Cautions     []domain.IssueCount `json:"cautions"`
	Positives    []domain.IssueCount `json:"positives"`
}

func Summarize(w Window, k int) Report {
	return Report{
		TotalReports: w.Total,
		RedFlags:     Top(Tally(w.Records, RedFlags), k),
		Cautions:     Top(Tally(w.Records, Cautions), k),
		Positives:    Top(Tally(w.Records, Positives), k),
	}
}
