// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/gridcast/internal/adapters/repository"
	"github.com/okian/gridcast/internal/domain/lineup"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/roster"
	"github.com/okian/gridcast/pkg/logger"
	"golang.org/x/time/rate"
)

// Default server configuration constants.
const (
	defaultMaxLimit    = 500
	defaultWaiverLimit = roster.DefaultWaiverLimit
	maxBodyBytes       = 4 << 20
)

// SnapshotDependencies serves the computed projection tables.
type SnapshotDependencies interface {
	// Snapshot returns the projections for scoring at the current data
	// version. An empty scoring uses the service default.
	Snapshot(ctx context.Context, scoring model.ScoringSystem) (*repository.Snapshot, error)
	Matcher() *roster.Matcher
}

// RosterDependencies manages roster state and the lineup optimizer.
type RosterDependencies interface {
	SetRoster(ctx context.Context, r roster.Roster) roster.Roster
	Roster() roster.Roster
	SyncSleeper(ctx context.Context, username, leagueID string) (roster.Roster, error)
	SleeperLeagues(ctx context.Context, username string, season int) ([]model.League, error)
	Lineup(ctx context.Context, scoring model.ScoringSystem, slots lineup.Slots) (lineup.Lineup, error)
}

// ECRDependencies accepts weekly ECR uploads.
type ECRDependencies interface {
	UploadECR(ctx context.Context, up model.ECRUpload) (model.UploadResult, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SnapshotDependencies
	RosterDependencies
	ECRDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	projectionHandler *ProjectionHandler
	rosterHandler     *RosterHandler
	ecrHandler        *ECRHandler

	uploadLimiter *rate.Limiter
}

// Option configures the Server.
type Option func(*serverConfig)

type serverConfig struct {
	maxLimit    int
	waiverLimit int
	uploadRate  float64
	uploadBurst int
	log         logger.Logger
}

// WithMaxLimit caps the limit query parameter of table endpoints.
func WithMaxLimit(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// WithWaiverLimit sets how many players the waiver list returns.
func WithWaiverLimit(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.waiverLimit = n
		}
	}
}

// WithUploadRateLimit throttles POST /ecr to perSecond requests with burst.
// Requests over the limit get 429.
func WithUploadRateLimit(perSecond float64, burst int) Option {
	return func(c *serverConfig) {
		if perSecond > 0 && burst > 0 {
			c.uploadRate = perSecond
			c.uploadBurst = burst
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{maxLimit: defaultMaxLimit, waiverLimit: defaultWaiverLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = logger.Get().Named("api")
	}

	s := &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		projectionHandler: NewProjectionHandler(deps, cfg.maxLimit, cfg.waiverLimit),
		rosterHandler:     NewRosterHandler(deps, deps, cfg.log),
		ecrHandler:        NewECRHandler(deps, cfg.log),
	}
	if cfg.uploadRate > 0 {
		s.uploadLimiter = rate.NewLimiter(rate.Limit(cfg.uploadRate), cfg.uploadBurst)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	p := s.projectionHandler
	r := s.rosterHandler

	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/projections", MetricsMiddleware(p.HandleProjections, "projections"))
	mux.HandleFunc("/reliability", MetricsMiddleware(p.HandleReliability, "reliability"))
	mux.HandleFunc("/positions", MetricsMiddleware(p.HandlePositions, "positions"))
	mux.HandleFunc("/rankings/", MetricsMiddleware(p.HandleRankings, "rankings"))
	mux.HandleFunc("/waiver", MetricsMiddleware(p.HandleWaiver, "waiver"))
	mux.HandleFunc("/historical", MetricsMiddleware(p.HandleHistorical, "historical"))
	mux.HandleFunc("/baselines", MetricsMiddleware(p.HandleBaselines, "baselines"))
	mux.HandleFunc("/summary", MetricsMiddleware(p.HandleSummary, "summary"))
	mux.HandleFunc("/lineup", MetricsMiddleware(r.HandleLineup, "lineup"))
	mux.HandleFunc("/roster", MetricsMiddleware(r.HandleRoster, "roster"))
	mux.HandleFunc("/roster/sleeper", MetricsMiddleware(r.HandleSleeperRoster, "roster_sleeper"))
	mux.HandleFunc("/sleeper/leagues", MetricsMiddleware(r.HandleSleeperLeagues, "sleeper_leagues"))
	mux.HandleFunc("/ecr", MetricsMiddleware(RateLimit(s.uploadLimiter, s.ecrHandler.HandleUpload), "ecr"))
}

// meta identifies which snapshot a table was read from.
type meta struct {
	Scoring     model.ScoringSystem `json:"scoring"`
	Version     uint64              `json:"version"`
	CurrentWeek int                 `json:"current_week"`
	NextWeek    int                 `json:"next_week"`
}

func metaOf(s *repository.Snapshot) meta {
	return meta{Scoring: s.Scoring, Version: s.Version, CurrentWeek: s.CurrentWeek, NextWeek: s.NextWeek}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "internal_error", Message: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// writeError answers with the status err's kind maps to.
func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// scoringParam reads ?scoring=. Empty means the service default.
func scoringParam(r *http.Request) (model.ScoringSystem, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("scoring"))
	if raw == "" {
		return "", nil
	}
	return model.ParseScoringSystem(raw)
}

// positionParam reads ?pos=. Empty and ALL mean every position.
func positionParam(r *http.Request) (model.Position, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("pos"))
	if raw == "" || strings.EqualFold(raw, "ALL") {
		return "", nil
	}
	return model.ParsePosition(raw)
}

// intParam reads a non-negative integer query parameter, returning def when
// it is absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, ErrBadRequest
	}
	return n, nil
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, ErrBadRequest
	}
	return f, nil
}
