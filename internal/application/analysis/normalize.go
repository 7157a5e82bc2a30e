package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	domain "github.com/rdflg/rdflg/internal/domain/analysis"
)

// Hints carry request-side facts the model output is merged with.
type Hints struct {
	// ServiceName from the request wins over the model's name.
	ServiceName string
	// Fallback replaces violations when the model omits them.
	Fallback     []domain.IssueCount
	TotalReports int
}

// Normalizer turns raw model text into schema-conformant values.
type Normalizer struct {
	RoundUnit int
}

// Normalize builds a record fragment from a consumer analysis response.
// Identity fields (ID, UserID, CreatedAt) are left for the caller.
func (n Normalizer) Normalize(raw string, h Hints) (*domain.Record, error) {
	obj, err := parseObject(raw)
	if err != nil {
		return nil, err
	}
	rec := &domain.Record{
		Service:           pickService(h.ServiceName, obj, domain.DefaultService),
		RiskScore:         RoundScore(number(obj, "riskScore"), n.RoundUnit),
		Summary:           text(obj, "summary", domain.DefaultSummary),
		ClauseCount:       count(obj, "clauseCount"),
		RedFlags:          labels(obj, "redFlags"),
		Cautions:          labels(obj, "cautions"),
		Positives:         labels(obj, "positives"),
		TotalUserAnalyses: h.TotalReports,
	}
	if v, ok := obj["violations"].([]any); ok {
		rec.Violations = violations(v)
	} else {
		rec.Violations = append([]domain.IssueCount{}, h.Fallback...)
	}
	return rec, nil
}

// NormalizeComparison builds an enterprise comparison from the model response.
func (n Normalizer) NormalizeComparison(raw string, h Hints) (*domain.Comparison, error) {
	obj, err := parseObject(raw)
	if err != nil {
		return nil, err
	}
	insights, _ := obj["communityInsights"].(map[string]any)
	topComplaint := domain.NotAvailable
	if len(h.Fallback) > 0 {
		topComplaint = h.Fallback[0].Label
	}
	total := h.TotalReports
	if v, ok := numeric(insights["totalUserReports"]); ok && v >= 0 {
		total = toCount(v)
	}
	return &domain.Comparison{
		Service:       pickService(h.ServiceName, obj, domain.DefaultEnterprise),
		RiskScore:     RoundScore(number(obj, "riskScore"), n.RoundUnit),
		Summary:       text(obj, "summary", domain.DefaultSummary),
		RedFlags:      labels(obj, "redFlags"),
		Cautions:      labels(obj, "cautions"),
		Positives:     labels(obj, "positives"),
		MatchedIssues: matchedIssues(obj["matchedIssues"]),
		CommunityInsights: domain.CommunityInsights{
			TotalUserReports:   total,
			TopComplaint:       text(insights, "topComplaint", topComplaint),
			IndustryComparison: text(insights, "industryComparison", domain.NotAvailable),
		},
		TotalUserAnalyses: h.TotalReports,
	}, nil
}

// RoundScore clamps score to [0,100] and rounds half up to a multiple of unit.
func RoundScore(score float64, unit int) int {
	if unit <= 0 {
		unit = 1
	}
	if math.IsNaN(score) || score < 0 {
		score = 0
	}
	if score > domain.MaxRiskScore {
		score = domain.MaxRiskScore
	}
	out := int(math.Floor(score/float64(unit)+0.5)) * unit
	if out > domain.MaxRiskScore {
		out -= unit
	}
	return out
}

// StripFences removes a surrounding markdown code fence such as ```json ... ```.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		i := strings.Index(s, "```")
		if i < 0 || strings.HasPrefix(s, "{") {
			return s
		}
		s = s[i:]
	}
	s = strings.TrimPrefix(s, "```")
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

func parseObject(raw string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(StripFences(raw)), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: not a JSON object", domain.ErrMalformedResponse)
	}
	return obj, nil
}

func pickService(requested string, obj map[string]any, placeholder string) string {
	if s := strings.TrimSpace(requested); s != "" {
		return s
	}
	return text(obj, "service", placeholder)
}

func text(obj map[string]any, key, def string) string {
	s, ok := obj[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func number(obj map[string]any, key string) float64 {
	v, _ := numeric(obj[key])
	return v
}

// toCount rounds v and clamps it to [0, MaxInt32] before converting, so
// out-of-range model numbers never wrap and always fit an INT column.
func toCount(v float64) int {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	}
	return int(math.Round(v))
}

// numeric accepts JSON numbers and numeric strings.
func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func count(obj map[string]any, key string) *int {
	v, ok := numeric(obj[key])
	if !ok || v < 0 {
		return nil
	}
	n := toCount(v)
	return &n
}

func labels(obj map[string]any, key string) []string {
	out := []string{}
	items, _ := obj[key].([]any)
	for _, item := range items {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func violations(items []any) []domain.IssueCount {
	out := []domain.IssueCount{}
	for _, item := range items {
		switch t := item.(type) {
		case string:
			if strings.TrimSpace(t) != "" {
				out = append(out, domain.IssueCount{Label: t, Count: 1})
			}
		case map[string]any:
			label := text(t, "label", "")
			if label == "" {
				continue
			}
			c := 1
			if v, ok := numeric(t["count"]); ok {
				c = toCount(v)
			}
			out = append(out, domain.IssueCount{Label: label, Count: c})
		}
	}
	return out
}

func matchedIssues(v any) []domain.MatchedIssue {
	out := []domain.MatchedIssue{}
	items, _ := v.([]any)
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		issue := text(obj, "issue", "")
		if issue == "" {
			continue
		}
		reports := 0
		if n, ok := numeric(obj["userReports"]); ok && n > 0 {
			reports = toCount(n)
		}
		out = append(out, domain.MatchedIssue{
			Issue:          issue,
			UserReports:    reports,
			Severity:       severity(obj["severity"]),
			Recommendation: text(obj, "recommendation", ""),
		})
	}
	return out
}

func severity(v any) domain.Severity {
	s, _ := v.(string)
	switch sev := domain.Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow:
		return sev
	}
	return domain.SeverityMedium
}
