package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/rdflg/rdflg/internal/domain/analysis"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", Truncate("", 10))
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "héé", Truncate("hééllo", 3))
	assert.Equal(t, "exact", Truncate("exact", 5))
	assert.Equal(t, "no limit", Truncate("no limit", 0))
}

func TestConsumerEmptyHistory(t *testing.T) {
	p := Consumer(ConsumerInput{Text: "You agree to forced arbitration."})
	assert.Contains(t, p, "Service: Unknown Service")
	assert.Contains(t, p, "Community Reports Analyzed: 0")
	assert.Contains(t, p, "KNOWN COMMUNITY ISSUE PATTERNS:\n[]")
	assert.Contains(t, p, "You agree to forced arbitration.")
	assert.Contains(t, p, AnalysisSchemaName)
}

func TestConsumerEmbedsIssuesAndTruncates(t *testing.T) {
	text := strings.Repeat("a", 40) + "TAIL"
	p := Consumer(ConsumerInput{
		ServiceName:  "Acme",
		Text:         text,
		TextLimit:    40,
		TotalReports: 2,
		Issues:       []domain.IssueCount{{Label: "Forced arbitration", Count: 2}},
	})
	assert.Contains(t, p, "Service: Acme")
	assert.Contains(t, p, "Community Reports Analyzed: 2")
	assert.Contains(t, p, `"label": "Forced arbitration"`)
	assert.Contains(t, p, `"count": 2`)
	assert.NotContains(t, p, "TAIL")
}

func TestConsumerDeterministic(t *testing.T) {
	in := ConsumerInput{ServiceName: "Acme", Text: "terms", Issues: []domain.IssueCount{{Label: "x", Count: 1}}}
	assert.Equal(t, Consumer(in), Consumer(in))
}

func TestEnterprise(t *testing.T) {
	p := Enterprise(EnterpriseInput{
		ServiceName:   "Globex",
		Text:          "terms",
		TotalReports:  3,
		Complaints:    []domain.IssueCount{{Label: "Data resale", Count: 3}},
		LikedFeatures: []string{"Clear refunds"},
	})
	assert.Contains(t, p, "Enterprise: Globex")
	assert.Contains(t, p, "USER COMMUNITY DATA (3 reports)")
	assert.Contains(t, p, `"Clear refunds"`)
	assert.Contains(t, p, ComparisonSchemaName)

	empty := Enterprise(EnterpriseInput{Text: "terms"})
	assert.Contains(t, empty, "Enterprise: Unknown Service")
	assert.Contains(t, empty, "Liked Features:\n[]")
}

func TestAnalysisSchema(t *testing.T) {
	raw, err := json.Marshal(AnalysisSchema())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.NotContains(t, doc, "$schema")
	assert.Equal(t, "object", doc["type"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"service", "riskScore", "summary", "clauseCount", "redFlags", "cautions", "positives", "violations"} {
		assert.Contains(t, props, key)
	}
	assert.NotContains(t, doc["required"], "clauseCount")
}

func TestComparisonSchema(t *testing.T) {
	raw, err := json.Marshal(ComparisonSchema())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "matchedIssues")
	assert.Contains(t, string(raw), "communityInsights")
}
