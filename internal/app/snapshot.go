package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	workerpool "github.com/okian/gridcast/internal/adapters/mq/worker"
	"github.com/okian/gridcast/internal/adapters/repository"
	"github.com/okian/gridcast/internal/domain/baseline"
	"github.com/okian/gridcast/internal/domain/history"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/reliability"
	"github.com/okian/gridcast/pkg/logger"
	"github.com/okian/gridcast/pkg/metrics"
)

// Build computes the snapshot a recompute request asks for. Requests for a
// version that is no longer current are stale and skipped.
func (s *Service) Build(ctx context.Context, r model.RecomputeRequest) (*repository.Snapshot, error) { //nolint:gocritic // hugeParam: matches worker.Builder
	s.mu.RLock()
	data := s.data
	current := s.version.Load()
	s.mu.RUnlock()

	if r.Version != current {
		return nil, fmt.Errorf("%w: version %d, current %d", workerpool.ErrStale, r.Version, current)
	}
	return s.compute(ctx, data, r.Scoring, r.Version)
}

// Snapshot returns the projections for scoring at the current data version,
// computing and storing them when the workers have not done so yet.
func (s *Service) Snapshot(ctx context.Context, scoring model.ScoringSystem) (*repository.Snapshot, error) {
	if scoring == "" {
		scoring = s.scoring
	}

	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return nil, ErrNotStarted
	}
	data := s.data
	version := s.version.Load()
	store := s.store
	s.mu.RUnlock()

	snap, err := store.Get(ctx, scoring, version)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	snap, err = s.compute(ctx, data, scoring, version)
	if err != nil {
		return nil, err
	}
	if err := store.Put(ctx, snap); err != nil {
		return nil, fmt.Errorf("put snapshot: %w", err)
	}
	metrics.RecordRecompute(string(scoring), "inline")
	return snap, nil
}

// compute runs the full engine for one scoring system over data.
func (s *Service) compute(ctx context.Context, data *model.Dataset, scoring model.ScoringSystem, version uint64) (*repository.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	current := data.CurrentFor(scoring)
	currentWeek := current.MaxWeek()
	nextWeek := s.nextWeek
	if nextWeek <= 0 {
		nextWeek = currentWeek + 1
	}

	baselines, year := baseline.BuildFor(data.Historical, scoring, s.baselineOpts...)
	relOpts := append([]reliability.Option{reliability.WithNormalizer(s.norm)}, s.reliabilityOpts...)
	rel := reliability.Estimate(current, data.Weekly, relOpts...)
	projections := s.engine.Project(current, data.Weekly[nextWeek], baselines, rel)

	built := time.Now()
	snap := &repository.Snapshot{
		ID:           uuid.NewString(),
		Scoring:      scoring,
		Version:      version,
		CurrentWeek:  currentWeek,
		NextWeek:     nextWeek,
		BaselineYear: year,
		Baselines:    baselines,
		Reliability:  rel,
		Projections:  projections,
		Positions:    reliability.Summarize(rel),
		History:      history.Build(data.Historical[scoring], s.historyDepth),
		BuiltAt:      built,
		BuildTime:    built.Sub(start),
	}

	metrics.RecordSnapshotBuild(float64(snap.BuildTime.Milliseconds()))
	metrics.UpdateProjectedPlayers(string(scoring), len(projections))
	if s.logger != nil {
		s.logger.Debug(ctx, "snapshot built",
			logger.String("scoring", string(scoring)),
			logger.Int("version", int(version)),
			logger.Int("players", len(projections)),
			logger.Int("nextWeek", nextWeek),
			logger.Duration("took", snap.BuildTime),
		)
	}
	return snap, nil
}
