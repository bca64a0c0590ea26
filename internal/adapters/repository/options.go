package repository

import "github.com/okian/capmap/internal/domain/model"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithInitialCapacity preallocates room for n alerts.
func WithInitialCapacity(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.records = make([]model.EnrichedAlert, 0, n)
		}
	}
}
