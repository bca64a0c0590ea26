// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/okian/capmap/internal/adapters/geocoder"
	eventqueue "github.com/okian/capmap/internal/adapters/mq/queue"
	workerpool "github.com/okian/capmap/internal/adapters/mq/worker"
	repository "github.com/okian/capmap/internal/adapters/repository"
	"github.com/okian/capmap/internal/domain/enrich"
	"github.com/okian/capmap/internal/domain/model"
	"github.com/okian/capmap/pkg/logger"
	"github.com/okian/capmap/pkg/metrics"
)

// Service wires the alert pipeline: queue, enrichment workers and store.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	queue    eventqueue.Queue
	pool     *workerpool.Pool
	resolver enrich.Resolver
	enricher *enrich.Enricher

	// Configuration
	workerCount int
	queueSize   int
	enrichOpts  []enrich.Option

	// State
	started bool
	cancel  context.CancelFunc

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
// The store exists from construction so reads work before Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}

	return s
}

// Start initializes and starts the service components.
// Workers outlive ctx cancellation; they stop on Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.resolver == nil {
		s.resolver = geocoder.New(geocoder.DefaultBaseURL)
	}

	s.logger.Info(ctx, "starting alert service...")

	opts := append([]enrich.Option{enrich.WithLogger(s.logger.Named("enrich"))}, s.enrichOpts...)
	s.enricher = enrich.New(s.resolver, opts...)
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.enricher, s.store)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "alert service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)

	return nil
}

// Stop closes the queue, waits for queued alerts to be stored and stops the workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping alert service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "alert service stopped", logger.Int("alerts", s.store.Count(ctx)))
}

// Ingest enriches and stores one alert and returns the stored record with
// the store size right after it. It waits for the worker's reply or ctx.
// A caller that gives up after enqueueing does not cancel the ingestion.
func (s *Service) Ingest(ctx context.Context, raw model.RawAlert) (model.Result, error) { //nolint:gocritic // RawAlert copied into the job
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()

	if !started {
		return model.Result{}, ErrUnavailable
	}

	job := model.NewJob(raw)
	if err := q.Enqueue(ctx, job); err != nil {
		switch {
		case errors.Is(err, eventqueue.ErrFull):
			return model.Result{}, fmt.Errorf("%w: %d alerts waiting", ErrBackpressure, q.Capacity())
		case errors.Is(err, eventqueue.ErrClosed):
			return model.Result{}, ErrUnavailable
		default:
			return model.Result{}, err
		}
	}

	s.logger.Debug(ctx, "alert queued", logger.String("area", raw.Area), logger.Int("queueLength", q.Len(ctx)))

	select {
	case res := <-job.Reply:
		return res, nil
	case <-ctx.Done():
		return model.Result{}, ctx.Err()
	}
}

// Alerts returns every stored alert in arrival order.
func (s *Service) Alerts(ctx context.Context) []model.EnrichedAlert {
	return s.store.Snapshot(ctx)
}

// Alert returns one stored alert by id.
func (s *Service) Alert(ctx context.Context, id string) (model.EnrichedAlert, error) {
	return s.store.Get(ctx, id)
}

// Count returns the number of stored alerts.
func (s *Service) Count(ctx context.Context) int {
	return s.store.Count(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"alertCount":  s.store.Count(ctx),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["processed"] = s.pool.Processed()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}
