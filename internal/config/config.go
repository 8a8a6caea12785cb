// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and GRIDCAST_ environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/gridcast/internal/domain/baseline"
	"github.com/okian/gridcast/internal/domain/history"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/projection"
	"github.com/okian/gridcast/internal/domain/reliability"
	"github.com/okian/gridcast/pkg/metrics"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataDir is the folder holding the FantasyPros CSV exports.
	DataDir string `koanf:"data_dir"`

	// ScoringSystem is used when a request names none.
	ScoringSystem string `koanf:"scoring_system"`

	// NextWeek pins the ECR week used for projections; 0 means the week
	// after the latest recorded score.
	NextWeek int `koanf:"next_week"`

	// ECRSeason keeps only ECR files whose name carries this year; 0 keeps all.
	ECRSeason int `koanf:"ecr_season"`

	// BaselineSeason pins the historical year for baselines; 0 means latest.
	BaselineSeason int `koanf:"baseline_season"`

	// BaselineDepth caps each positional baseline curve.
	BaselineDepth int `koanf:"baseline_depth"`

	// HistoryDepth is the number of positional finishes in /historical.
	HistoryDepth int `koanf:"history_depth"`

	// QueueSize bounds the in-memory recompute queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many ECR upload ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLimit caps the limit query parameter of table endpoints.
	MaxLimit int `koanf:"max_limit"`

	// WaiverLimit caps the waiver list.
	WaiverLimit int `koanf:"waiver_limit"`

	// UploadRatePerSec and UploadBurst throttle POST /ecr; 0 disables.
	UploadRatePerSec float64 `koanf:"upload_rate_per_sec"`
	UploadBurst      int     `koanf:"upload_burst"`

	// SleeperBaseURL, SleeperTimeoutMS and SleeperRatePerSec configure the
	// Sleeper client. An empty base URL disables roster sync.
	SleeperBaseURL    string  `koanf:"sleeper_base_url"`
	SleeperTimeoutMS  int     `koanf:"sleeper_timeout_ms"`
	SleeperRatePerSec float64 `koanf:"sleeper_rate_per_sec"`

	// Metrics settings. MetricsInstance becomes the constant "instance"
	// label of every series when set.
	MetricsEnabled   bool      `koanf:"metrics_enabled"`
	MetricsNamespace string    `koanf:"metrics_namespace"`
	MetricsRefreshMS int       `koanf:"metrics_refresh_ms"`
	MetricsInstance  string    `koanf:"metrics_instance"`
	MetricsBucketsMS []float64 `koanf:"metrics_buckets_ms"`

	// Projection engine constants.
	BlendCorrelationThreshold float64 `koanf:"blend_correlation_threshold"`
	BiasThreshold             float64 `koanf:"bias_threshold"`
	BiasWeight                float64 `koanf:"bias_weight"`
	DropPerRank               float64 `koanf:"drop_per_rank"`
	MinExtrapolatedPoints     float64 `koanf:"min_extrapolated_points"`
	DefaultStdDev             float64 `koanf:"default_std_dev"`
	StdDevWeight              float64 `koanf:"std_dev_weight"`
	FloorRatio                float64 `koanf:"floor_ratio"`
	NoECRFloorRatio           float64 `koanf:"no_ecr_floor_ratio"`
	NoECRCeilingRatio         float64 `koanf:"no_ecr_ceiling_ratio"`

	// Reliability estimator constants.
	MinReliabilityGames int     `koanf:"min_reliability_games"`
	HitWindow           float64 `koanf:"hit_window"`
}

// New creates a Config with defaults. The engine constants mirror
// projection.DefaultParams.
func New(_ context.Context) *Config {
	p := projection.DefaultParams()
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		DataDir:           "./data",
		ScoringSystem:     "ppr",
		BaselineDepth:     baseline.DefaultDepth,
		HistoryDepth:      history.DefaultDepth,
		QueueSize:         64,
		WorkerCount:       1,
		DedupeSize:        4096,
		MaxLimit:          500,
		WaiverLimit:       30,
		UploadRatePerSec:  2,
		UploadBurst:       10,
		SleeperBaseURL:    "https://api.sleeper.app",
		SleeperTimeoutMS:  15_000,
		SleeperRatePerSec: 10,
		MetricsEnabled:    true,
		MetricsNamespace:  "gridcast",
		MetricsRefreshMS:  10_000,

		BlendCorrelationThreshold: p.BlendThreshold,
		BiasThreshold:             p.BiasThreshold,
		BiasWeight:                p.BiasWeight,
		DropPerRank:               p.DropPerRank,
		MinExtrapolatedPoints:     p.MinExtrapolated,
		DefaultStdDev:             p.DefaultStdDev,
		StdDevWeight:              p.StdDevWeight,
		FloorRatio:                p.FloorRatio,
		NoECRFloorRatio:           p.NoECRFloorRatio,
		NoECRCeilingRatio:         p.NoECRCeilingRatio,

		MinReliabilityGames: reliability.DefaultMinGames,
		HitWindow:           reliability.DefaultHitWindow,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.NextWeek < 0 || c.NextWeek > model.SeasonWeeks:
		return fmt.Errorf("%w: next_week must be within 0..%d", ErrInvalidConfig, model.SeasonWeeks)
	case c.BaselineDepth < 0 || c.HistoryDepth < 0:
		return fmt.Errorf("%w: depths must not be negative", ErrInvalidConfig)
	case c.BlendCorrelationThreshold < -1 || c.BlendCorrelationThreshold > 1:
		return fmt.Errorf("%w: blend_correlation_threshold must be within [-1,1]", ErrInvalidConfig)
	case c.MinReliabilityGames < 0 || c.HitWindow < 0:
		return fmt.Errorf("%w: reliability settings must not be negative", ErrInvalidConfig)
	case c.UploadRatePerSec < 0 || c.SleeperRatePerSec < 0:
		return fmt.Errorf("%w: rates must not be negative", ErrInvalidConfig)
	case c.MetricsRefreshMS < 0:
		return fmt.Errorf("%w: metrics_refresh_ms must not be negative", ErrInvalidConfig)
	}
	for i := 1; i < len(c.MetricsBucketsMS); i++ {
		if c.MetricsBucketsMS[i] <= c.MetricsBucketsMS[i-1] {
			return fmt.Errorf("%w: metrics_buckets_ms must be strictly increasing", ErrInvalidConfig)
		}
	}
	if _, err := c.Scoring(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// Scoring parses ScoringSystem.
func (c *Config) Scoring() (model.ScoringSystem, error) {
	return model.ParseScoringSystem(c.ScoringSystem)
}

// ProjectionParams returns the engine constants with c's overrides applied.
// Tier limits are not configurable.
func (c *Config) ProjectionParams() projection.Params {
	p := projection.DefaultParams()
	p.BlendThreshold = c.BlendCorrelationThreshold
	p.BiasThreshold = c.BiasThreshold
	p.BiasWeight = c.BiasWeight
	p.DropPerRank = c.DropPerRank
	p.MinExtrapolated = c.MinExtrapolatedPoints
	p.DefaultStdDev = c.DefaultStdDev
	p.StdDevWeight = c.StdDevWeight
	p.FloorRatio = c.FloorRatio
	p.NoECRFloorRatio = c.NoECRFloorRatio
	p.NoECRCeilingRatio = c.NoECRCeilingRatio
	p.MinReliabilityGames = c.MinReliabilityGames
	return p
}

// BaselineOptions returns the baseline builder options c selects.
func (c *Config) BaselineOptions() []baseline.Option {
	return []baseline.Option{baseline.WithDepth(c.BaselineDepth), baseline.WithSeason(c.BaselineSeason)}
}

// ReliabilityOptions returns the reliability estimator options c selects.
func (c *Config) ReliabilityOptions() []reliability.Option {
	return []reliability.Option{reliability.WithMinGames(c.MinReliabilityGames), reliability.WithHitWindow(c.HitWindow)}
}

// MetricsOptions returns the metrics manager options c selects. Zero values
// keep the manager defaults.
func (c *Config) MetricsOptions() []metrics.Option {
	opts := []metrics.Option{
		metrics.WithMetricsEnabled(c.MetricsEnabled),
		metrics.WithNamespace(c.MetricsNamespace),
		metrics.WithRefreshInterval(time.Duration(c.MetricsRefreshMS) * time.Millisecond),
		metrics.WithHistogramBuckets(c.MetricsBucketsMS),
	}
	if c.MetricsInstance != "" {
		opts = append(opts, metrics.WithCustomLabels(map[string]string{"instance": c.MetricsInstance}))
	}
	return opts
}
