package analysis

import "time"

// RecordID identifier type
type RecordID string

// Placeholder values used when a field is missing from the model output.
const (
	DefaultService       = "New Policy"
	DefaultSummary       = "Analysis completed"
	DefaultEnterprise    = "Untitled Service"
	UnknownService       = "Unknown Service"
	NotAvailable         = "N/A"
	MaxRiskScore         = 100
	DefaultHistoryWindow = 50
	DefaultTopIssues     = 10
)

// IssueCount is one row of an issue frequency table, and the shape of a violation.
type IssueCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Record is one normalized ToS analysis. Records are append-only.
type Record struct {
	ID                RecordID     `json:"id"`
	UserID            *string      `json:"userId"`
	Service           string       `json:"service"`
	RiskScore         int          `json:"riskScore"`
	Summary           string       `json:"summary"`
	ClauseCount       *int         `json:"clauseCount"`
	RedFlags          []string     `json:"redFlags"`
	Cautions          []string     `json:"cautions"`
	Positives         []string     `json:"positives"`
	Violations        []IssueCount `json:"violations"`
	TotalUserAnalyses int          `json:"totalUserAnalyses"`
	CreatedAt         time.Time    `json:"createdAt"`
}

// Severity of a matched enterprise issue.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// MatchedIssue is a clause of an enterprise ToS that matches community complaints.
type MatchedIssue struct {
	Issue          string   `json:"issue"`
	UserReports    int      `json:"userReports"`
	Severity       Severity `json:"severity"`
	Recommendation string   `json:"recommendation"`
}

// CommunityInsights summarizes how the community sees an enterprise ToS.
type CommunityInsights struct {
	TotalUserReports   int    `json:"totalUserReports"`
	TopComplaint       string `json:"topComplaint"`
	IndustryComparison string `json:"industryComparison"`
}

// Comparison is the result of comparing an enterprise ToS with community reports.
// It is returned to the caller and never persisted.
type Comparison struct {
	Service           string            `json:"service"`
	RiskScore         int               `json:"riskScore"`
	Summary           string            `json:"summary"`
	RedFlags          []string          `json:"redFlags"`
	Cautions          []string          `json:"cautions"`
	Positives         []string          `json:"positives"`
	MatchedIssues     []MatchedIssue    `json:"matchedIssues"`
	CommunityInsights CommunityInsights `json:"communityInsights"`
	TotalUserAnalyses int               `json:"totalUserAnalyses"`
	Snapshot          time.Time         `json:"snapshot"`
}
