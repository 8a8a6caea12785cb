// Package repository keeps computed projection snapshots per scoring system
// and data version.
package repository

import (
	"context"
	"time"

	"github.com/okian/gridcast/internal/domain/history"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/reliability"
)

// Snapshot is one full engine run: everything the read endpoints serve for a
// scoring system at a given data version. Snapshots are immutable once put.
type Snapshot struct {
	ID           string                           `json:"id"`
	Scoring      model.ScoringSystem              `json:"scoring"`
	Version      uint64                           `json:"version"`
	CurrentWeek  int                              `json:"current_week"`
	NextWeek     int                              `json:"next_week"`
	BaselineYear int                              `json:"baseline_year"`
	Baselines    model.Baselines                  `json:"baselines"`
	Reliability  map[string]model.ReliabilityStat `json:"-"`
	Projections  []model.Projection               `json:"-"`
	Positions    []reliability.PositionSummary    `json:"positions"`
	History      []history.Table                  `json:"-"`
	BuiltAt      time.Time                        `json:"built_at"`
	BuildTime    time.Duration                    `json:"build_time"`
}

// Store provides read/write access to computed snapshots.
type Store interface {
	// Put stores s and publishes it as the latest for its scoring system
	// unless a newer version is already published. An empty ID is assigned.
	Put(ctx context.Context, s *Snapshot) error

	// Get returns the snapshot for scoring at version.
	// Returns ErrNotFound if it was never built or has been pruned.
	Get(ctx context.Context, scoring model.ScoringSystem, version uint64) (*Snapshot, error)

	// Latest returns the newest snapshot published for scoring.
	Latest(ctx context.Context, scoring model.ScoringSystem) (*Snapshot, error)

	// Count returns the number of snapshots held.
	Count(ctx context.Context) int
}
