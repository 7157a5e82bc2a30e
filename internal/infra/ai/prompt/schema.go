package prompt

import (
	"sync"

	"github.com/invopop/jsonschema"
)

const (
	AnalysisSchemaName   = "tos_analysis"
	ComparisonSchemaName = "enterprise_comparison"
)

// Violation mirrors analysis.IssueCount in the model contract.
type Violation struct {
	Label string `json:"label"`
	Count int    `json:"count" jsonschema:"minimum=0"`
}

// AnalysisResponse is the output contract requested from the model for a consumer analysis.
type AnalysisResponse struct {
	Service     string      `json:"service" jsonschema_description:"Name of the analyzed service"`
	RiskScore   float64     `json:"riskScore" jsonschema:"minimum=0,maximum=100"`
	Summary     string      `json:"summary"`
	ClauseCount *int        `json:"clauseCount,omitempty" jsonschema:"minimum=0" jsonschema_description:"Estimated number of clauses"`
	RedFlags    []string    `json:"redFlags"`
	Cautions    []string    `json:"cautions"`
	Positives   []string    `json:"positives"`
	Violations  []Violation `json:"violations"`
}

type MatchedIssue struct {
	Issue          string `json:"issue"`
	UserReports    int    `json:"userReports" jsonschema:"minimum=0"`
	Severity       string `json:"severity" jsonschema:"enum=high,enum=medium,enum=low"`
	Recommendation string `json:"recommendation"`
}

type CommunityInsights struct {
	TotalUserReports   int    `json:"totalUserReports" jsonschema:"minimum=0"`
	TopComplaint       string `json:"topComplaint"`
	IndustryComparison string `json:"industryComparison"`
}

// ComparisonResponse is the output contract for an enterprise comparison.
type ComparisonResponse struct {
	Service           string            `json:"service"`
	RiskScore         float64           `json:"riskScore" jsonschema:"minimum=0,maximum=100"`
	Summary           string            `json:"summary"`
	RedFlags          []string          `json:"redFlags"`
	Cautions          []string          `json:"cautions"`
	Positives         []string          `json:"positives"`
	MatchedIssues     []MatchedIssue    `json:"matchedIssues"`
	CommunityInsights CommunityInsights `json:"communityInsights"`
}

var (
	analysisOnce   sync.Once
	analysisSchema *jsonschema.Schema

	comparisonOnce   sync.Once
	comparisonSchema *jsonschema.Schema
)

// AnalysisSchema returns the JSON schema of AnalysisResponse.
func AnalysisSchema() *jsonschema.Schema {
	analysisOnce.Do(func() { analysisSchema = reflect(&AnalysisResponse{}) })
	return analysisSchema
}

// ComparisonSchema returns the JSON schema of ComparisonResponse.
func ComparisonSchema() *jsonschema.Schema {
	comparisonOnce.Do(func() { comparisonSchema = reflect(&ComparisonResponse{}) })
	return comparisonSchema
}

func reflect(v any) *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Anonymous:                 true,
	}
	s := r.Reflect(v)
	// Gemini rejects the $schema keyword.
	s.Version = ""
	return s
}
