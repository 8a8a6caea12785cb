// Package worker runs projection recomputes off the request queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/gridcast/internal/adapters/mq/queue"
	"github.com/okian/gridcast/internal/adapters/repository"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/pkg/logger"
	"github.com/okian/gridcast/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 1 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Request is what workers read off the queue.
type Request = queue.Request

// Builder computes a snapshot for a request. It returns ErrStale when the
// request's version is no longer current.
type Builder interface {
	Build(ctx context.Context, r Request) (*repository.Snapshot, error)
}

// Publisher stores built snapshots.
type Publisher interface {
	Get(ctx context.Context, scoring model.ScoringSystem, version uint64) (*repository.Snapshot, error)
	Put(ctx context.Context, s *repository.Snapshot) error
}

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Request
}

// Worker processes recompute requests.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing requests.
type InMemoryWorker struct {
	queue     Queue
	builder   Builder
	publisher Publisher
	name      string
	active    *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, builder Builder, publisher Publisher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		builder:   builder,
		publisher: publisher,
		name:      "worker",
		active:    &atomic.Int64{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-requests:
			if !ok {
				return
			}
			if err := w.process(ctx, r); err != nil {
				w.logger.Error(ctx, "recompute failed", logger.String("request_id", r.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process builds and publishes one snapshot. Requests whose snapshot already
// exists are skipped.
func (w *InMemoryWorker) process(ctx context.Context, r Request) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	w.active.Add(1)
	start := time.Now()
	defer func() {
		w.active.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()
	scoring := string(r.Scoring)

	if _, err := w.publisher.Get(ctx, r.Scoring, r.Version); err == nil {
		metrics.RecordRecompute(scoring, "cached")
		return nil
	}

	snap, err := w.builder.Build(ctx, r)
	switch {
	case errors.Is(err, ErrStale):
		metrics.RecordRecompute(scoring, "stale")
		w.logger.Debug(ctx, "dropping stale request",
			logger.String("scoring", scoring),
			logger.Int("version", int(r.Version)))
		return nil
	case err != nil:
		metrics.RecordRecompute(scoring, "error")
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "build_failed")
		metrics.RecordErrorByType("build_failed", "high")
		return fmt.Errorf("build %s v%d: %w", scoring, r.Version, err)
	}

	if err := w.publisher.Put(ctx, snap); err != nil {
		metrics.RecordRecompute(scoring, "error")
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "publish_failed")
		metrics.RecordErrorByType("publish_failed", "high")
		return fmt.Errorf("publish %s v%d: %w", scoring, r.Version, err)
	}

	metrics.RecordRecompute(scoring, "ok")
	w.logger.Debug(ctx, "snapshot published",
		logger.String("scoring", scoring),
		logger.Int("version", int(r.Version)),
		logger.String("reason", r.Reason),
		logger.Int("players", len(snap.Projections)))
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  atomic.Int64

	shutdown chan struct{}
	closed   atomic.Bool

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses one worker per CPU.
func NewPool(workerCount int, q Queue, builder Builder, publisher Publisher) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewInMemoryWorker(q, builder, publisher,
			WithName("worker-"+strconv.Itoa(i)),
			withActiveCounter(&p.active))
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	return p
}

// Size is the number of workers in the pool.
func (p *Pool) Size() int { return len(p.workers) }

// Active is the number of workers currently recomputing.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	active := p.Active()
	metrics.UpdateWorkerActiveCount(active)
	metrics.UpdateWorkerIdleCount(len(p.workers) - active)
}

func (p *Pool) signal() bool {
	if !p.closed.CompareAndSwap(false, true) {
		return false
	}
	close(p.shutdown)
	for _, w := range p.workers {
		close(w.shutdown)
	}
	return true
}

// Stop signals every worker and waits briefly for each to exit.
func (p *Pool) Stop() {
	if !p.signal() {
		return
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue, stops the workers and waits for them or ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if !p.signal() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
