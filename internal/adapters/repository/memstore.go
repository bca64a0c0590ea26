package repository

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/capmap/internal/domain/model"
	"github.com/okian/capmap/pkg/metrics"
)

// MemoryStore is an append-only, in-memory Store.
//
// Writers serialize on mu and publish a fresh slice header after every
// append. Readers load the header without locking. Elements below a
// published length are never written again, so every published view stays
// valid even while later appends grow the backing array.
type MemoryStore struct {
	mu      sync.Mutex
	records []model.EnrichedAlert

	// view is the latest published prefix of records.
	view atomic.Pointer[[]model.EnrichedAlert]
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{}
	for _, opt := range opts {
		opt(s)
	}
	empty := s.records[:0:0]
	s.view.Store(&empty)
	return s
}

// Append implements Store.Append.
func (s *MemoryStore) Append(_ context.Context, alert model.EnrichedAlert) int { //nolint:gocritic // stored by value
	rec := alert.Clone()

	s.mu.Lock()
	s.records = append(s.records, rec)
	n := len(s.records)
	published := s.records[:n:n]
	s.view.Store(&published)
	s.mu.Unlock()

	metrics.RecordAlertIngested(n)
	return n
}

// Snapshot implements Store.Snapshot.
func (s *MemoryStore) Snapshot(_ context.Context) []model.EnrichedAlert {
	view := *s.view.Load()
	out := make([]model.EnrichedAlert, len(view))
	for i := range view {
		out[i] = view[i].Clone()
	}
	return out
}

// Get implements Store.Get. Recent alerts are checked first.
func (s *MemoryStore) Get(_ context.Context, id string) (model.EnrichedAlert, error) {
	view := *s.view.Load()
	for i := len(view) - 1; i >= 0; i-- {
		if view[i].ID == id {
			return view[i].Clone(), nil
		}
	}
	return model.EnrichedAlert{}, ErrNotFound
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	return len(*s.view.Load())
}
