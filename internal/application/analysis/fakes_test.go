package analysis

import (
	"context"
	"errors"
	"sort"
	"sync"

	domain "github.com/rdflg/rdflg/internal/domain/analysis"
)

type memRepo struct {
	mu      sync.Mutex
	recs    []*domain.Record
	saveErr error
	readErr error
}

func (r *memRepo) Save(_ context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *rec
	r.recs = append(r.recs, &cp)
	return nil
}

func (r *memRepo) Latest(_ context.Context, limit int) ([]*domain.Record, error) {
	return r.query(func(*domain.Record) bool { return true }, limit)
}

func (r *memRepo) ListByUser(_ context.Context, userID string, limit int) ([]*domain.Record, error) {
	return r.query(func(rec *domain.Record) bool { return rec.UserID != nil && *rec.UserID == userID }, limit)
}

func (r *memRepo) query(keep func(*domain.Record) bool, limit int) ([]*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return nil, r.readErr
	}
	out := []*domain.Record{}
	for _, rec := range r.recs {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recs)
}

type memArchive struct {
	mu   sync.Mutex
	objs map[string][]byte
	err  error
}

func (a *memArchive) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	if a.objs == nil {
		a.objs = map[string][]byte{}
	}
	a.objs[key] = data
	return "mem://" + key, nil
}

var errStorage = errors.New("storage offline")
