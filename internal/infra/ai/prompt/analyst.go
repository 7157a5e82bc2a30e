package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	domain "github.com/rdflg/rdflg/internal/domain/analysis"
)

// Default character budgets for the subject document.
const (
	ConsumerTextLimit   = 15000
	EnterpriseTextLimit = 20000
)

// ConsumerInput is everything the consumer analysis prompt embeds.
type ConsumerInput struct {
	ServiceName  string
	Text         string
	TextLimit    int
	TotalReports int
	Issues       []domain.IssueCount
}

// EnterpriseInput is everything the enterprise comparison prompt embeds.
type EnterpriseInput struct {
	ServiceName   string
	Text          string
	TextLimit     int
	TotalReports  int
	Complaints    []domain.IssueCount
	LikedFeatures []string
}

// Consumer renders the prompt for a consumer ToS analysis.
func Consumer(in ConsumerInput) string {
	limit := in.TextLimit
	if limit <= 0 {
		limit = ConsumerTextLimit
	}
	var b strings.Builder
	b.WriteString("You are an expert legal auditor analyzing Terms of Service documents.\n\n")
	b.WriteString("ANALYSIS REQUEST:\n")
	fmt.Fprintf(&b, "Service: %s\n", serviceOrPlaceholder(in.ServiceName))
	fmt.Fprintf(&b, "Community Reports Analyzed: %d\n\n", in.TotalReports)
	b.WriteString("KNOWN COMMUNITY ISSUE PATTERNS:\n")
	b.WriteString(indentJSON(nonNilIssues(in.Issues)))
	b.WriteString("\n\nTERMS OF SERVICE TEXT:\n")
	b.WriteString(Truncate(in.Text, limit))
	b.WriteString("\n\nYOUR TASK:\n")
	b.WriteString("Identify red flags (clauses harmful to users), cautions (clauses worth reading twice) and positives.\n")
	b.WriteString("Score the overall risk from 0 (harmless) to 100 (predatory).\n")
	b.WriteString("Where a clause matches a known community issue, reuse that exact label in violations.\n")
	fmt.Fprintf(&b, "Return ONLY a valid JSON object conforming to the %q schema: ", AnalysisSchemaName)
	b.WriteString("{service, riskScore (0-100), summary, clauseCount, redFlags[], cautions[], positives[], violations[] of {label, count}}.\n")
	b.WriteString("Do not wrap the JSON in markdown code fences.")
	return b.String()
}

// Enterprise renders the prompt comparing a business ToS with community reports.
func Enterprise(in EnterpriseInput) string {
	limit := in.TextLimit
	if limit <= 0 {
		limit = EnterpriseTextLimit
	}
	liked := in.LikedFeatures
	if liked == nil {
		liked = []string{}
	}
	var b strings.Builder
	b.WriteString("You are analyzing an enterprise's Terms of Service on behalf of its users.\n\n")
	fmt.Fprintf(&b, "Enterprise: %s\n", serviceOrPlaceholder(in.ServiceName))
	b.WriteString("TERMS OF SERVICE TEXT:\n")
	b.WriteString(Truncate(in.Text, limit))
	fmt.Fprintf(&b, "\n\nUSER COMMUNITY DATA (%d reports):\n", in.TotalReports)
	b.WriteString("Common Complaints:\n")
	b.WriteString(indentJSON(nonNilIssues(in.Complaints)))
	b.WriteString("\nLiked Features:\n")
	b.WriteString(indentJSON(liked))
	b.WriteString("\n\nTASK:\n")
	b.WriteString("1. Identify clauses in this enterprise ToS that match user complaints.\n")
	b.WriteString("2. Estimate how many users would flag each matched section.\n")
	b.WriteString("3. Provide a recommendation per matched issue.\n")
	fmt.Fprintf(&b, "Return ONLY a valid JSON object conforming to the %q schema.", ComparisonSchemaName)
	return b.String()
}

// Truncate cuts s to at most limit characters. It never splits a rune.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

func serviceOrPlaceholder(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return domain.UnknownService
	}
	return name
}

func nonNilIssues(in []domain.IssueCount) []domain.IssueCount {
	if in == nil {
		return []domain.IssueCount{}
	}
	return in
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}
