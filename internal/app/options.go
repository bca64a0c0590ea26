package service

import (
	"github.com/okian/capmap/internal/adapters/repository"
	"github.com/okian/capmap/internal/domain/enrich"
	"github.com/okian/capmap/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of enrichment workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of alerts waiting for enrichment.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithResolver sets the place resolver used during enrichment.
func WithResolver(r enrich.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithEnrichOptions passes options through to the enricher.
func WithEnrichOptions(opts ...enrich.Option) Option {
	return func(s *Service) {
		s.enrichOpts = append(s.enrichOpts, opts...)
	}
}

// WithStore replaces the alert store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}
