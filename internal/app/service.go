// Package service owns the projection dataset, roster state and snapshot
// cache, and implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	recomputequeue "github.com/okian/gridcast/internal/adapters/mq/queue"
	workerpool "github.com/okian/gridcast/internal/adapters/mq/worker"
	"github.com/okian/gridcast/internal/adapters/repository"
	"github.com/okian/gridcast/internal/domain/baseline"
	"github.com/okian/gridcast/internal/domain/dedupe"
	"github.com/okian/gridcast/internal/domain/history"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/names"
	"github.com/okian/gridcast/internal/domain/projection"
	"github.com/okian/gridcast/internal/domain/reliability"
	"github.com/okian/gridcast/internal/domain/roster"
	"github.com/okian/gridcast/pkg/logger"
	"github.com/okian/gridcast/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultWorkerCount = 1
	defaultQueueSize   = 64
	defaultDedupeSize  = dedupe.DefaultMaxSize
	stopTimeout        = 10 * time.Second
)

// DataLoader produces the dataset the service starts from.
type DataLoader interface {
	Load(ctx context.Context) (*model.Dataset, error)
}

// RosterResolver resolves rosters and leagues on a fantasy platform.
type RosterResolver interface {
	ResolveRoster(ctx context.Context, username, leagueID string) (roster.Roster, error)
	LeaguesFor(ctx context.Context, username string, season int) ([]model.League, error)
}

// Service implements the API dependencies for the projection system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   recomputequeue.Queue
	pool    *workerpool.Pool
	engine  *projection.Engine
	loader  DataLoader
	sleeper RosterResolver
	norm    names.Normalizer

	// State guarded by mu; version only changes together with data.
	data    *model.Dataset
	version atomic.Uint64
	roster  roster.Roster
	matcher *roster.Matcher

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	scoring         model.ScoringSystem
	nextWeek        int
	historyDepth    int
	baselineOpts    []baseline.Option
	reliabilityOpts []reliability.Option

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the recompute queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many upload ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLoader sets where the dataset is loaded from on Start.
func WithLoader(l DataLoader) Option {
	return func(s *Service) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithDataset starts the service from an in-memory dataset.
func WithDataset(d *model.Dataset) Option {
	return func(s *Service) {
		if d != nil {
			s.data = d
		}
	}
}

// WithRosterResolver enables platform roster sync.
func WithRosterResolver(r RosterResolver) Option {
	return func(s *Service) {
		if r != nil {
			s.sleeper = r
		}
	}
}

// WithEngine replaces the projection engine.
func WithEngine(e *projection.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithDefaultScoring sets the scoring system used when a request names none.
func WithDefaultScoring(sc model.ScoringSystem) Option {
	return func(s *Service) {
		if sc != "" {
			s.scoring = sc
		}
	}
}

// WithNextWeek pins the week whose ECR feeds projections. By default it is
// the week after the latest recorded score.
func WithNextWeek(week int) Option {
	return func(s *Service) {
		if week > 0 {
			s.nextWeek = week
		}
	}
}

// WithHistoryDepth sets how many positional finishes the history table shows.
func WithHistoryDepth(depth int) Option {
	return func(s *Service) {
		if depth > 0 {
			s.historyDepth = depth
		}
	}
}

// WithBaselineOptions forwards options to the baseline builder.
func WithBaselineOptions(opts ...baseline.Option) Option {
	return func(s *Service) {
		s.baselineOpts = append(s.baselineOpts, opts...)
	}
}

// WithReliabilityOptions forwards options to the reliability estimator.
func WithReliabilityOptions(opts ...reliability.Option) Option {
	return func(s *Service) {
		s.reliabilityOpts = append(s.reliabilityOpts, opts...)
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  defaultWorkerCount,
		queueSize:    defaultQueueSize,
		dedupeSize:   defaultDedupeSize,
		scoring:      model.PPR,
		historyDepth: history.DefaultDepth,
		norm:         names.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = projection.NewEngine(projection.WithNormalizer(s.norm))
	}
	s.matcher = roster.NewMatcher(s.norm, roster.Roster{})
	return s
}

// Start loads the dataset, starts the recompute workers and queues a warm-up
// build for the default scoring system.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting projection service...")

	if s.data == nil && s.loader != nil {
		data, err := s.loader.Load(ctx)
		if err != nil {
			return fmt.Errorf("load dataset: %w", err)
		}
		s.data = data
	}
	if s.data == nil {
		s.data = model.NewDataset()
	}

	s.store = repository.NewMemoryStore(ctx)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = recomputequeue.NewInMemoryQueue(
		recomputequeue.WithCapacity(s.queueSize),
		recomputequeue.WithBufferSize(s.queueSize),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s, s.store)
	s.pool.Start(ctx)

	v := s.version.Add(1)
	metrics.UpdateDataVersion(v)
	s.started = true
	s.enqueueLocked(ctx, v, "startup")

	s.logger.Info(ctx, "projection service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("scoring", string(s.scoring)),
		logger.Int("currentWeek", s.data.CurrentWeek(s.scoring)),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping projection service...")

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(ctx, "projection service stopped")
}

// enqueueLocked asks the workers to build version for every scoring system
// that has data, plus the default one. Caller holds mu.
func (s *Service) enqueueLocked(ctx context.Context, version uint64, reason string) {
	for _, sc := range model.ScoringSystems {
		if sc != s.scoring && !s.data.HasData(sc) {
			continue
		}
		req := model.RecomputeRequest{
			ID:      fmt.Sprintf("%s-%d", sc, version),
			Scoring: sc,
			Version: version,
			Reason:  reason,
		}
		if !s.queue.Enqueue(ctx, req) {
			// Reads build inline on a miss, so a dropped warm-up only costs latency.
			s.logger.Warn(ctx, "recompute queue full, request dropped",
				logger.String("scoring", string(sc)),
				logger.Int("version", int(version)))
		}
	}
}

// DefaultScoring is the scoring system used when a request names none.
func (s *Service) DefaultScoring() model.ScoringSystem { return s.scoring }

// Version is the current data version.
func (s *Service) Version() uint64 { return s.version.Load() }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"defaultScoring": string(s.scoring),
		"dataVersion":    s.version.Load(),
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len(ctx)
	snapshots := s.store.Count(ctx)
	stats["queueLength"] = queueLen
	stats["snapshots"] = snapshots
	stats["activeWorkers"] = s.pool.Active()
	stats["uploadsSeen"] = s.deduper.Size()
	stats["currentWeek"] = s.data.CurrentWeek(s.scoring)
	stats["ecrWeeks"] = s.data.Weekly.Weeks()
	stats["rosterSource"] = s.roster.Source
	stats["myRoster"] = s.matcher.MineCount()

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateSnapshotCount(snapshots)
	metrics.UpdateWorkerCount(s.workerCount)
	return stats
}
