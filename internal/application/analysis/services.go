package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rdflg/rdflg/internal/application"
	"github.com/rdflg/rdflg/internal/application/community"
	"github.com/rdflg/rdflg/internal/domain/ai"
	domain "github.com/rdflg/rdflg/internal/domain/analysis"
	"github.com/rdflg/rdflg/internal/infra/ai/prompt"
)

// Options tune the pipeline. Zero values fall back to the defaults below.
type Options struct {
	TopIssues           int
	ConsumerTextLimit   int
	EnterpriseTextLimit int
	ConsumerRoundUnit   int
	EnterpriseRoundUnit int
}

func (o Options) withDefaults() Options {
	if o.TopIssues <= 0 {
		o.TopIssues = domain.DefaultTopIssues
	}
	if o.ConsumerTextLimit <= 0 {
		o.ConsumerTextLimit = prompt.ConsumerTextLimit
	}
	if o.EnterpriseTextLimit <= 0 {
		o.EnterpriseTextLimit = prompt.EnterpriseTextLimit
	}
	if o.ConsumerRoundUnit <= 0 {
		o.ConsumerRoundUnit = 10
	}
	if o.EnterpriseRoundUnit <= 0 {
		o.EnterpriseRoundUnit = 5
	}
	return o
}

// Service implements the analysis use-cases.
// Service is safe for concurrent use.
type Service struct {
	History   *community.Loader
	Requester *Requester
	Writer    *Writer
	Repo      domain.Repository
	Clock     application.Clock
	Log       *zap.Logger
	Opts      Options
}

//
// ==== USE CASES ====
//

// AnalyzeCommand is one consumer submission.
type AnalyzeCommand struct {
	Text        string
	ServiceName string
	UserID      *string
}

// Analyze runs the consumer pipeline and schedules the write-back.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*domain.Record, error) {
	if strings.TrimSpace(cmd.Text) == "" {
		return nil, domain.ErrEmptyText
	}
	opts := s.Opts.withDefaults()

	w := s.History.Load(ctx)
	table := community.Top(community.Tally(w.Records, community.RedFlags, community.Cautions), opts.TopIssues)

	raw, err := s.Requester.Request(ctx, ai.Request{
		Prompt: prompt.Consumer(prompt.ConsumerInput{
			ServiceName:  cmd.ServiceName,
			Text:         cmd.Text,
			TextLimit:    opts.ConsumerTextLimit,
			TotalReports: w.Total,
			Issues:       table,
		}),
		SchemaName:  prompt.AnalysisSchemaName,
		Schema:      prompt.AnalysisSchema(),
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	rec, err := Normalizer{RoundUnit: opts.ConsumerRoundUnit}.Normalize(raw, Hints{
		ServiceName:  cmd.ServiceName,
		Fallback:     table,
		TotalReports: w.Total,
	})
	if err != nil {
		s.logger().Warn("unparseable model output", zap.Int("bytes", len(raw)), zap.Error(err))
		return nil, fmt.Errorf("analyze: %w", err)
	}
	rec.ID = domain.RecordID(uuid.NewString())
	rec.UserID = cmd.UserID
	rec.CreatedAt = s.now()

	s.Writer.Submit(rec, cmd.Text)
	return rec, nil
}

// Compare analyzes an enterprise ToS against community complaints. Nothing is persisted.
func (s *Service) Compare(ctx context.Context, cmd AnalyzeCommand) (*domain.Comparison, error) {
	if strings.TrimSpace(cmd.Text) == "" {
		return nil, domain.ErrEmptyText
	}
	opts := s.Opts.withDefaults()

	w := s.History.Load(ctx)
	complaints := community.Tally(w.Records, community.RedFlags)

	raw, err := s.Requester.Request(ctx, ai.Request{
		Prompt: prompt.Enterprise(prompt.EnterpriseInput{
			ServiceName:   cmd.ServiceName,
			Text:          cmd.Text,
			TextLimit:     opts.EnterpriseTextLimit,
			TotalReports:  w.Total,
			Complaints:    community.Top(complaints, opts.TopIssues),
			LikedFeatures: community.Distinct(w.Records, community.Positives, opts.TopIssues),
		}),
		SchemaName: prompt.ComparisonSchemaName,
		Schema:     prompt.ComparisonSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}

	cmp, err := Normalizer{RoundUnit: opts.EnterpriseRoundUnit}.NormalizeComparison(raw, Hints{
		ServiceName:  cmd.ServiceName,
		Fallback:     complaints,
		TotalReports: w.Total,
	})
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	cmp.Snapshot = s.now()
	return cmp, nil
}

// ListByUser returns the newest analyses owned by userID.
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Record, error) {
	recs, err := s.Repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	if recs == nil {
		recs = []*domain.Record{}
	}
	return recs, nil
}

// Community reports the top issues of the current history window.
func (s *Service) Community(ctx context.Context, k int) community.Report {
	if k <= 0 {
		k = s.Opts.withDefaults().TopIssues
	}
	return community.Summarize(s.History.Load(ctx), k)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
