package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/gridcast/internal/domain/lineup"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/roster"
	"github.com/okian/gridcast/pkg/logger"
	"github.com/okian/gridcast/pkg/metrics"
)

// UploadECR applies one week's ECR table. Positions present in the upload
// replace that week's rows for them; other positions are kept. Entries
// without a name or a positive rank are dropped. Replaying an upload id is acknowledged without
// changing the data version.
func (s *Service) UploadECR(ctx context.Context, up model.ECRUpload) (model.UploadResult, error) { //nolint:gocritic // hugeParam: request value
	if up.Week < 1 || up.Week > model.SeasonWeeks {
		metrics.RecordECRUpload("invalid")
		return model.UploadResult{}, fmt.Errorf("%w: week %d outside 1..%d", ErrInvalidUpload, up.Week, model.SeasonWeeks)
	}
	entries := make([]model.ECREntry, 0, len(up.Entries))
	for _, e := range up.Entries {
		if e.Name == "" || e.Rank <= 0 || !e.Position.Valid() {
			continue
		}
		entries = append(entries, e)
	}
	metrics.RecordRowsSkipped("upload", len(up.Entries)-len(entries))
	if len(entries) == 0 {
		metrics.RecordECRUpload("invalid")
		return model.UploadResult{}, fmt.Errorf("%w: no usable entries", ErrInvalidUpload)
	}
	if up.ID == "" {
		up.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return model.UploadResult{}, ErrNotStarted
	}

	res := model.UploadResult{ID: up.ID, Week: up.Week, Accepted: len(entries)}
	if s.deduper.SeenAndRecord(ctx, up.ID) {
		metrics.RecordECRUpload("duplicate")
		res.Duplicate = true
		res.Version = s.version.Load()
		return res, nil
	}

	s.data = s.data.WithWeek(up.Week, entries)
	res.Version = s.version.Add(1)
	metrics.UpdateDataVersion(res.Version)
	metrics.RecordECRUpload("accepted")
	s.enqueueLocked(ctx, res.Version, "ecr_upload")

	s.logger.Info(ctx, "ecr uploaded",
		logger.String("uploadId", up.ID),
		logger.Int("week", up.Week),
		logger.Int("entries", len(entries)),
		logger.Int("version", int(res.Version)))
	return res, nil
}

// SetRoster replaces the roster state used by filters, the waiver list and
// the lineup optimizer.
func (s *Service) SetRoster(ctx context.Context, r roster.Roster) roster.Roster { //nolint:gocritic // hugeParam: request value
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	m := roster.NewMatcher(s.norm, r)

	s.mu.Lock()
	s.roster = r
	s.matcher = m
	s.mu.Unlock()

	metrics.UpdateRosterSize(m.MineCount(), len(r.Rostered))
	if s.logger != nil {
		s.logger.Info(ctx, "roster updated",
			logger.String("source", r.Source),
			logger.Int("mine", m.MineCount()),
			logger.Int("rostered", len(r.Rostered)))
	}
	return r
}

// Roster returns the current roster state.
func (s *Service) Roster() roster.Roster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roster
}

// Matcher returns the matcher for the current roster.
func (s *Service) Matcher() *roster.Matcher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matcher
}

// SyncSleeper resolves username's roster in a Sleeper league and makes it
// the current roster.
func (s *Service) SyncSleeper(ctx context.Context, username, leagueID string) (roster.Roster, error) {
	if s.sleeper == nil {
		return roster.Roster{}, ErrNoResolver
	}
	r, err := s.sleeper.ResolveRoster(ctx, username, leagueID)
	if err != nil {
		return roster.Roster{}, fmt.Errorf("resolve sleeper roster: %w", err)
	}
	return s.SetRoster(ctx, r), nil
}

// SleeperLeagues lists username's NFL leagues for season.
func (s *Service) SleeperLeagues(ctx context.Context, username string, season int) ([]model.League, error) {
	if s.sleeper == nil {
		return nil, ErrNoResolver
	}
	leagues, err := s.sleeper.LeaguesFor(ctx, username, season)
	if err != nil {
		return nil, fmt.Errorf("list sleeper leagues: %w", err)
	}
	return leagues, nil
}

// Lineup picks the best starting lineup from the players on my roster.
func (s *Service) Lineup(ctx context.Context, scoring model.ScoringSystem, slots lineup.Slots) (lineup.Lineup, error) {
	snap, err := s.Snapshot(ctx, scoring)
	if err != nil {
		return lineup.Lineup{}, err
	}
	m := s.Matcher()
	mine := make([]model.Projection, 0, m.MineCount())
	for _, p := range snap.Projections {
		if m.OnRoster(p.Name) {
			mine = append(mine, p)
		}
	}
	return lineup.Optimize(mine, slots), nil
}
