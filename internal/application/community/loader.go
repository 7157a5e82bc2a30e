package community

import (
	"context"

	"go.uber.org/zap"

	domain "github.com/rdflg/rdflg/internal/domain/analysis"
)

// Window is the slice of recent history that informs one request.
type Window struct {
	Records []*domain.Record
	Total   int
}

// Loader reads the recent history window.
type Loader struct {
	Repo domain.Repository
	Size int
	Log  *zap.Logger
}

// Load returns the Size most recent records, newest first.
// A storage failure degrades to an empty window and is only logged.
func (l *Loader) Load(ctx context.Context) Window {
	if l == nil || l.Repo == nil {
		return Window{Records: []*domain.Record{}}
	}
	size := l.Size
	if size <= 0 {
		size = domain.DefaultHistoryWindow
	}
	recs, err := l.Repo.Latest(ctx, size)
	if err != nil {
		if l.Log != nil {
			l.Log.Warn("history unavailable, continuing without community context", zap.Error(err))
		}
		return Window{Records: []*domain.Record{}}
	}
	if recs == nil {
		recs = []*domain.Record{}
	}
	return Window{Records: recs, Total: len(recs)}
}
