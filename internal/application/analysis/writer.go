package analysis

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	domain "github.com/rdflg/rdflg/internal/domain/analysis"
)

const defaultWriteTimeout = 10 * time.Second

// Writer appends records in the background. Failures are logged, never returned.
type Writer struct {
	Repo domain.Repository
	// Archive, when set, keeps the submitted text next to the record.
	Archive domain.ArtifactStore
	Timeout time.Duration
	Log     *zap.Logger

	wg sync.WaitGroup
}

// Submit persists rec without blocking the caller.
func (w *Writer) Submit(rec *domain.Record, source string) {
	if w == nil || w.Repo == nil || rec == nil {
		return
	}
	cp := *rec
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		timeout := w.Timeout
		if timeout <= 0 {
			timeout = defaultWriteTimeout
		}
		// the request context is gone by the time this runs
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := w.Repo.Save(ctx, &cp); err != nil {
			w.warn("save analysis failed", cp.ID, err)
			return
		}
		if w.Archive != nil && source != "" {
			key := "submissions/" + string(cp.ID) + ".txt"
			if _, err := w.Archive.Put(ctx, key, []byte(source), "text/plain; charset=utf-8"); err != nil {
				w.warn("archive submission failed", cp.ID, err)
			}
		}
	}()
}

// Wait blocks until every submitted write finished.
func (w *Writer) Wait() { w.wg.Wait() }

// Drain waits for pending writes or until ctx is done.
func (w *Writer) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) warn(msg string, id domain.RecordID, err error) {
	if w.Log == nil {
		return
	}
	w.Log.Warn(msg, zap.String("id", string(id)), zap.Error(err))
}
