package httpserver_test

import (
	"context"

	appanalysis "github.com/rdflg/rdflg/internal/application/analysis"
	"github.com/rdflg/rdflg/internal/application/community"
	domain "github.com/rdflg/rdflg/internal/domain/analysis"
	"github.com/rdflg/rdflg/internal/domain/narration"
)

type mockAnalyzer struct {
	analyzeFn   func(ctx context.Context, cmd appanalysis.AnalyzeCommand) (*domain.Record, error)
	compareFn   func(ctx context.Context, cmd appanalysis.AnalyzeCommand) (*domain.Comparison, error)
	listFn      func(ctx context.Context, userID string, limit int) ([]*domain.Record, error)
	communityFn func(ctx context.Context, k int) community.Report
}

func (m *mockAnalyzer) Analyze(ctx context.Context, cmd appanalysis.AnalyzeCommand) (*domain.Record, error) {
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, cmd)
	}
	return &domain.Record{}, nil
}

func (m *mockAnalyzer) Compare(ctx context.Context, cmd appanalysis.AnalyzeCommand) (*domain.Comparison, error) {
	if m.compareFn != nil {
		return m.compareFn(ctx, cmd)
	}
	return &domain.Comparison{}, nil
}

func (m *mockAnalyzer) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Record, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, limit)
	}
	return []*domain.Record{}, nil
}

func (m *mockAnalyzer) Community(ctx context.Context, k int) community.Report {
	if m.communityFn != nil {
		return m.communityFn(ctx, k)
	}
	return community.Report{}
}

type mockNarrator struct {
	narrateFn func(ctx context.Context, text, voiceID string) (*narration.Audio, error)
}

func (m *mockNarrator) Narrate(ctx context.Context, text, voiceID string) (*narration.Audio, error) {
	if m.narrateFn != nil {
		return m.narrateFn(ctx, text, voiceID)
	}
	return &narration.Audio{}, nil
}
