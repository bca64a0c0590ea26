// Package worker runs enrichment jobs pulled from the queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/capmap/internal/domain/model"
	"github.com/okian/capmap/pkg/logger"
	"github.com/okian/capmap/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = model.Job

// Enricher resolves the places of a raw alert.
type Enricher interface {
	Enrich(ctx context.Context, raw model.RawAlert) model.EnrichedAlert
}

// Appender stores an enriched alert and returns the new store size.
type Appender interface {
	Append(ctx context.Context, alert model.EnrichedAlert) int
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs until the queue drains or it is shut down.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker without waiting for the queue to drain.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	enricher Enricher
	store    Appender
	name     string

	processed atomic.Int64

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, enricher Enricher, store Appender, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		enricher: enricher,
		store:    store,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop. It returns when the queue is closed and
// drained, on Shutdown, or when ctx is canceled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
}

// Processed returns the number of jobs this worker completed.
func (w *InMemoryWorker) Processed() int64 {
	return w.processed.Load()
}

// process enriches and stores one alert, then replies. The reply slot is
// buffered so a caller that gave up never blocks the worker.
func (w *InMemoryWorker) process(ctx context.Context, job Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	enriched := w.enricher.Enrich(ctx, job.Alert)
	count := w.store.Append(ctx, enriched)
	w.processed.Add(1)

	w.logger.Debug(ctx, "alert stored",
		logger.String("id", enriched.ID),
		logger.String("area", enriched.Area),
		logger.Bool("danger_resolved", enriched.Danger != nil),
		logger.Int("safe_places", len(enriched.SafePlaces)),
		logger.Int("count", count))

	select {
	case job.Reply <- model.Result{Alert: enriched, Count: count}:
	default:
		metrics.RecordErrorByComponent("worker", "reply_dropped")
		w.logger.Warn(ctx, "reply slot full, result dropped", logger.String("id", enriched.ID))
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, enricher Enricher, store Appender) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			enricher,
			store,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Processed returns the number of jobs completed across all workers.
func (p *Pool) Processed() int64 {
	var total int64
	for _, w := range p.workers {
		total += w.Processed()
	}
	return total
}

// Shutdown closes the queue and lets workers drain it. Workers still busy
// when ctx expires, or after poolShutdownTimeout, are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-drainCtx.Done():
			timedOut++
			worker.stop()
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateWorkerCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, drainCtx.Err())
	}
	return nil
}
