package analysis

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/rdflg/rdflg/internal/domain/analysis"
)

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```":           `{"a":1}`,
		"```\n{\"a\":1}\n```":               `{"a":1}`,
		"```JSON{\"a\":1}```":               `{"a":1}`,
		"  {\"a\":1}  ":                     `{"a":1}`,
		"Here you go:\n```json\n{}\n```":    `{}`,
		`{"note":"use ` + "```" + ` here"}`: `{"note":"use ` + "```" + ` here"}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, StripFences(in), "input %q", in)
	}
}

func TestRoundScore(t *testing.T) {
	cases := []struct {
		score float64
		unit  int
		want  int
	}{
		{65, 10, 70},
		{64.9, 10, 60},
		{62.5, 5, 65},
		{62.4, 5, 60},
		{0, 10, 0},
		{100, 10, 100},
		{-20, 10, 0},
		{150, 10, 100},
		{99, 40, 80},
		{math.NaN(), 10, 0},
		{42, 0, 42},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RoundScore(tc.score, tc.unit), "score=%v unit=%d", tc.score, tc.unit)
	}
}

func TestRoundScoreAlwaysMultipleOfUnit(t *testing.T) {
	for _, unit := range []int{5, 10} {
		for s := 0.0; s <= 100; s += 0.5 {
			got := RoundScore(s, unit)
			assert.Zero(t, got%unit)
			assert.LessOrEqual(t, math.Abs(float64(got)-s), float64(unit)/2)
		}
	}
}

func TestNormalizeEmptyObject(t *testing.T) {
	rec, err := Normalizer{RoundUnit: 10}.Normalize("{}", Hints{})
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultService, rec.Service)
	assert.Equal(t, domain.DefaultSummary, rec.Summary)
	assert.Equal(t, 0, rec.RiskScore)
	assert.Nil(t, rec.ClauseCount)
	assert.NotNil(t, rec.RedFlags)
	assert.NotNil(t, rec.Cautions)
	assert.NotNil(t, rec.Positives)
	assert.NotNil(t, rec.Violations)
	assert.Empty(t, rec.Violations)
}

func TestNormalizeFencedResponse(t *testing.T) {
	raw := "```json\n{\"service\":\"Acme\",\"riskScore\":65,\"summary\":\"Risky\",\"redFlags\":[\"Forced arbitration\"]}\n```"
	rec, err := Normalizer{RoundUnit: 10}.Normalize(raw, Hints{})
	require.NoError(t, err)
	assert.Equal(t, "Acme", rec.Service)
	assert.Equal(t, 70, rec.RiskScore)
	assert.Equal(t, []string{"Forced arbitration"}, rec.RedFlags)
}

func TestNormalizeMalformed(t *testing.T) {
	for _, raw := range []string{"", "not json", "[1,2]", "null", "```json\n{\"a\":\n```"} {
		_, err := Normalizer{RoundUnit: 10}.Normalize(raw, Hints{})
		assert.ErrorIs(t, err, domain.ErrMalformedResponse, "input %q", raw)
	}
}

func TestNormalizeWrongShapes(t *testing.T) {
	raw := `{
		"service": 12,
		"riskScore": "55",
		"summary": "",
		"clauseCount": -3,
		"redFlags": "one",
		"cautions": [1, "", "Auto renewal", null],
		"positives": null,
		"violations": [{"label":"Data resale","count":-2}, {"label":"","count":3}, "Tracking", {"label":"No count"}, 7]
	}`
	rec, err := Normalizer{RoundUnit: 10}.Normalize(raw, Hints{})
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultService, rec.Service)
	assert.Equal(t, 60, rec.RiskScore)
	assert.Equal(t, domain.DefaultSummary, rec.Summary)
	assert.Nil(t, rec.ClauseCount)
	assert.Equal(t, []string{}, rec.RedFlags)
	assert.Equal(t, []string{"Auto renewal"}, rec.Cautions)
	assert.Equal(t, []string{}, rec.Positives)
	assert.Equal(t, []domain.IssueCount{
		{Label: "Data resale", Count: 0},
		{Label: "Tracking", Count: 1},
		{Label: "No count", Count: 1},
	}, rec.Violations)
}

func TestNormalizeServicePrecedence(t *testing.T) {
	n := Normalizer{RoundUnit: 10}
	rec, err := n.Normalize(`{"service":"FromModel"}`, Hints{ServiceName: "  Requested "})
	require.NoError(t, err)
	assert.Equal(t, "Requested", rec.Service)

	rec, err = n.Normalize(`{"service":"FromModel"}`, Hints{ServiceName: " "})
	require.NoError(t, err)
	assert.Equal(t, "FromModel", rec.Service)
}

func TestNormalizeViolationsFallback(t *testing.T) {
	table := []domain.IssueCount{{Label: "Forced arbitration", Count: 2}}
	n := Normalizer{RoundUnit: 10}

	rec, err := n.Normalize(`{"riskScore":40}`, Hints{Fallback: table, TotalReports: 2})
	require.NoError(t, err)
	assert.Equal(t, table, rec.Violations)
	assert.Equal(t, 2, rec.TotalUserAnalyses)
	rec.Violations[0].Count = 99
	assert.Equal(t, 2, table[0].Count)

	rec, err = n.Normalize(`{"violations":"none"}`, Hints{Fallback: table})
	require.NoError(t, err)
	assert.Equal(t, table, rec.Violations)

	// an explicit empty list is the model's answer, not an omission
	rec, err = n.Normalize(`{"violations":[]}`, Hints{Fallback: table})
	require.NoError(t, err)
	assert.Empty(t, rec.Violations)
}

func TestNormalizeClauseCount(t *testing.T) {
	rec, err := Normalizer{RoundUnit: 10}.Normalize(`{"clauseCount": 41.6}`, Hints{})
	require.NoError(t, err)
	require.NotNil(t, rec.ClauseCount)
	assert.Equal(t, 42, *rec.ClauseCount)
}

func TestNormalizeIdempotent(t *testing.T) {
	n := Normalizer{RoundUnit: 10}
	h := Hints{
		ServiceName:  "Acme",
		TotalReports: 3,
		Fallback:     []domain.IssueCount{{Label: "Forced arbitration", Count: 2}},
	}
	inputs := []string{
		"{}",
		`{"riskScore": 67, "summary": "s", "clauseCount": 12, "redFlags": ["a", ""], "violations": ["b"]}`,
		"```json\n{\"riskScore\": 101, \"positives\": [\"p\"]}\n```",
	}
	for _, raw := range inputs {
		first, err := n.Normalize(raw, h)
		require.NoError(t, err)

		b, err := json.Marshal(first)
		require.NoError(t, err)
		second, err := n.Normalize(string(b), h)
		require.NoError(t, err)

		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("normalize not idempotent for %q (-first +second):\n%s", raw, diff)
		}
	}
}

func TestNormalizeComparison(t *testing.T) {
	raw := `{
		"service": "Globex",
		"riskScore": 62.5,
		"matchedIssues": [
			{"issue":"Data resale","userReports":12,"severity":"HIGH","recommendation":"Remove clause"},
			{"issue":"Auto renewal","userReports":-1,"severity":"critical"},
			{"issue":"","userReports":3}
		],
		"communityInsights": {"topComplaint":"Data resale"}
	}`
	cmpRes, err := Normalizer{RoundUnit: 5}.NormalizeComparison(raw, Hints{TotalReports: 7})
	require.NoError(t, err)

	assert.Equal(t, "Globex", cmpRes.Service)
	assert.Equal(t, 65, cmpRes.RiskScore)
	assert.Equal(t, domain.DefaultSummary, cmpRes.Summary)
	require.Len(t, cmpRes.MatchedIssues, 2)
	assert.Equal(t, domain.SeverityHigh, cmpRes.MatchedIssues[0].Severity)
	assert.Equal(t, domain.SeverityMedium, cmpRes.MatchedIssues[1].Severity)
	assert.Equal(t, 0, cmpRes.MatchedIssues[1].UserReports)
	assert.Equal(t, 7, cmpRes.CommunityInsights.TotalUserReports)
	assert.Equal(t, "Data resale", cmpRes.CommunityInsights.TopComplaint)
	assert.Equal(t, domain.NotAvailable, cmpRes.CommunityInsights.IndustryComparison)
	assert.Equal(t, 7, cmpRes.TotalUserAnalyses)
}

func TestNormalizeComparisonDefaults(t *testing.T) {
	cmpRes, err := Normalizer{RoundUnit: 5}.NormalizeComparison("{}", Hints{})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultEnterprise, cmpRes.Service)
	assert.NotNil(t, cmpRes.MatchedIssues)
	assert.NotNil(t, cmpRes.RedFlags)
	assert.Equal(t, domain.NotAvailable, cmpRes.CommunityInsights.TopComplaint)
	assert.Equal(t, 0, cmpRes.CommunityInsights.TotalUserReports)
}

func TestNormalizeHugeNumbers(t *testing.T) {
	rec, err := Normalizer{RoundUnit: 10}.Normalize(
		`{"riskScore":1e300,"clauseCount":1e300,"violations":[{"label":"Data sale","count":1e300},{"label":"Tracking","count":-1e300}]}`,
		Hints{})
	require.NoError(t, err)
	require.NotNil(t, rec.ClauseCount)
	assert.Equal(t, math.MaxInt32, *rec.ClauseCount)
	assert.Equal(t, 100, rec.RiskScore)
	require.Len(t, rec.Violations, 2)
	assert.Equal(t, math.MaxInt32, rec.Violations[0].Count)
	assert.Equal(t, 0, rec.Violations[1].Count)

	comparison, err := Normalizer{RoundUnit: 5}.NormalizeComparison(
		`{"matchedIssues":[{"issue":"Arbitration","userReports":1e300}],"communityInsights":{"totalUserReports":"1e300"}}`,
		Hints{TotalReports: 3})
	require.NoError(t, err)
	require.Len(t, comparison.MatchedIssues, 1)
	assert.Equal(t, math.MaxInt32, comparison.MatchedIssues[0].UserReports)
	assert.Equal(t, math.MaxInt32, comparison.CommunityInsights.TotalUserReports)
}
