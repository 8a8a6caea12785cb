package api

import (
	"net/http"
	"strings"

	"github.com/okian/gridcast/internal/adapters/repository"
	"github.com/okian/gridcast/internal/domain/history"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/reliability"
	"github.com/okian/gridcast/internal/domain/roster"
)

// ProjectionRow is a projection annotated with roster status.
type ProjectionRow struct {
	model.Projection
	OnRoster bool `json:"my_roster"`
	Rostered bool `json:"rostered"`
}

// ReliabilityRow joins a player's reliability with their season average.
type ReliabilityRow struct {
	model.ReliabilityStat
	Average float64     `json:"avg"`
	Trend   model.Trend `json:"trend"`
}

var projectionColumns = map[string]column[ProjectionRow]{ //nolint:gochecknoglobals // static column table
	"name":        text(func(r ProjectionRow) string { return r.Name }),
	"pos":         text(func(r ProjectionRow) string { return string(r.Position) }),
	"proj":        numeric(func(r ProjectionRow) float64 { return r.Projected }),
	"floor":       numeric(func(r ProjectionRow) float64 { return r.Floor }),
	"ceiling":     numeric(func(r ProjectionRow) float64 { return r.Ceiling }),
	"avg":         numeric(func(r ProjectionRow) float64 { return r.Average }),
	"games":       numeric(func(r ProjectionRow) float64 { return float64(r.Games) }),
	"ecr_rank":    numeric(func(r ProjectionRow) float64 { return r.ECRRank }),
	"correlation": numeric(func(r ProjectionRow) float64 { return r.Correlation }),
	"mae":         numeric(func(r ProjectionRow) float64 { return r.MAE }),
	"hit_rate":    numeric(func(r ProjectionRow) float64 { return r.HitRate }),
	"bias":        numeric(func(r ProjectionRow) float64 { return r.Bias }),
	"rank":        numeric(func(r ProjectionRow) float64 { return float64(r.Rank) }),
	"tier":        text(func(r ProjectionRow) string { return string(r.Tier) }),
	"trend":       text(func(r ProjectionRow) string { return string(r.Trend) }),
}

var reliabilityColumns = map[string]column[ReliabilityRow]{ //nolint:gochecknoglobals // static column table
	"name":        text(func(r ReliabilityRow) string { return r.Name }),
	"pos":         text(func(r ReliabilityRow) string { return string(r.Position) }),
	"games":       numeric(func(r ReliabilityRow) float64 { return float64(r.Games) }),
	"avg":         numeric(func(r ReliabilityRow) float64 { return r.Average }),
	"correlation": numeric(func(r ReliabilityRow) float64 { return r.Correlation }),
	"mae":         numeric(func(r ReliabilityRow) float64 { return r.MAE }),
	"hit_rate":    numeric(func(r ReliabilityRow) float64 { return r.HitRate }),
	"bias":        numeric(func(r ReliabilityRow) float64 { return r.Bias }),
	"trend":       text(func(r ReliabilityRow) string { return string(r.Trend) }),
}

// ProjectionHandler serves the tables computed from a snapshot.
type ProjectionHandler struct {
	deps        SnapshotDependencies
	maxLimit    int
	waiverLimit int
}

// NewProjectionHandler creates a new projection handler.
func NewProjectionHandler(deps SnapshotDependencies, maxLimit, waiverLimit int) *ProjectionHandler {
	return &ProjectionHandler{deps: deps, maxLimit: maxLimit, waiverLimit: waiverLimit}
}

// snapshot resolves ?scoring= and loads the matching snapshot, writing the
// error response itself on failure.
func (h *ProjectionHandler) snapshot(w http.ResponseWriter, r *http.Request, op string) (*repository.Snapshot, bool) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return nil, false
	}
	scoring, err := scoringParam(r)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return nil, false
	}
	snap, err := h.deps.Snapshot(r.Context(), scoring)
	if err != nil {
		writeError(w, Wrap(op, err))
		return nil, false
	}
	return snap, true
}

type projectionsResponse struct {
	meta
	Count   int             `json:"count"`
	Players []ProjectionRow `json:"players"`
}

// HandleProjections handles GET /projections.
func (h *ProjectionHandler) HandleProjections(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_projections"
	snap, ok := h.snapshot(w, r, op)
	if !ok {
		return
	}
	q := r.URL.Query()
	pos, err := positionParam(r)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	filter, err := roster.ParseFilter(q.Get("roster"))
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil || limit > h.maxLimit {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}
	search := strings.ToLower(strings.TrimSpace(q.Get("q")))

	m := h.deps.Matcher()
	rows := make([]ProjectionRow, 0, len(snap.Projections))
	for _, p := range snap.Projections {
		if pos != "" && p.Position != pos {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if !m.Keep(filter, p.Name) {
			continue
		}
		rows = append(rows, ProjectionRow{Projection: p, OnRoster: m.OnRoster(p.Name), Rostered: m.Rostered(p.Name)})
	}
	if err := sortRows(rows, projectionColumns, q.Get("sort"), q.Get("dir")); err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	writeJSON(w, http.StatusOK, projectionsResponse{meta: metaOf(snap), Count: len(rows), Players: rows})
}

type reliabilityResponse struct {
	meta
	Count   int              `json:"count"`
	Players []ReliabilityRow `json:"players"`
}

// HandleReliability handles GET /reliability. Rows default to the most
// consistent players first.
func (h *ProjectionHandler) HandleReliability(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_reliability"
	snap, ok := h.snapshot(w, r, op)
	if !ok {
		return
	}
	pos, err := positionParam(r)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	// Projections follow season order for equal points, so walking them
	// gives a deterministic row order before sorting.
	rows := make([]ReliabilityRow, 0, len(snap.Reliability))
	for _, p := range snap.Projections {
		st, ok := snap.Reliability[p.Name]
		if !ok || (pos != "" && st.Position != pos) {
			continue
		}
		rows = append(rows, ReliabilityRow{ReliabilityStat: st, Average: p.Average, Trend: model.TrendFor(st.Bias)})
	}

	key := r.URL.Query().Get("sort")
	if key == "" {
		key = "correlation"
	}
	if err := sortRows(rows, reliabilityColumns, key, r.URL.Query().Get("dir")); err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, reliabilityResponse{meta: metaOf(snap), Count: len(rows), Players: rows})
}

type positionsResponse struct {
	meta
	Positions []reliability.PositionSummary `json:"positions"`
}

// HandlePositions handles GET /positions.
func (h *ProjectionHandler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r, "api.get_positions")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, positionsResponse{meta: metaOf(snap), Positions: snap.Positions})
}

type rankingsResponse struct {
	meta
	Position model.Position  `json:"pos"`
	Players  []ProjectionRow `json:"players"`
}

// HandleRankings handles GET /rankings/{pos}.
func (h *ProjectionHandler) HandleRankings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rankings"
	// Extract path parameter after /rankings/
	path := strings.TrimPrefix(r.URL.Path, "/rankings/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}
	pos, err := model.ParsePosition(path)
	if err != nil {
		writeError(w, WrapKind(op, ErrNotFound, err))
		return
	}
	snap, ok := h.snapshot(w, r, op)
	if !ok {
		return
	}
	m := h.deps.Matcher()
	ranked := roster.Rankings(snap.Projections, pos)
	rows := make([]ProjectionRow, len(ranked))
	for i, p := range ranked {
		rows[i] = ProjectionRow{Projection: p, OnRoster: m.OnRoster(p.Name), Rostered: m.Rostered(p.Name)}
	}
	writeJSON(w, http.StatusOK, rankingsResponse{meta: metaOf(snap), Position: pos, Players: rows})
}

type waiverResponse struct {
	meta
	Players []roster.WaiverEntry `json:"players"`
}

// HandleWaiver handles GET /waiver?min=.
func (h *ProjectionHandler) HandleWaiver(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_waiver"
	snap, ok := h.snapshot(w, r, op)
	if !ok {
		return
	}
	minProj, err := floatParam(r, "min", 0)
	if err != nil {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}
	list := roster.Waiver(snap.Projections, h.deps.Matcher(), minProj, h.waiverLimit)
	writeJSON(w, http.StatusOK, waiverResponse{meta: metaOf(snap), Players: list})
}

type historicalResponse struct {
	Scoring model.ScoringSystem `json:"scoring"`
	Tables  []history.Table     `json:"tables"`
}

// HandleHistorical handles GET /historical.
func (h *ProjectionHandler) HandleHistorical(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r, "api.get_historical")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, historicalResponse{Scoring: snap.Scoring, Tables: snap.History})
}

type baselinesResponse struct {
	Scoring   model.ScoringSystem `json:"scoring"`
	Year      int                 `json:"year"`
	Baselines model.Baselines     `json:"baselines"`
}

// HandleBaselines handles GET /baselines.
func (h *ProjectionHandler) HandleBaselines(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r, "api.get_baselines")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, baselinesResponse{Scoring: snap.Scoring, Year: snap.BaselineYear, Baselines: snap.Baselines})
}

type summaryResponse struct {
	meta
	roster.Summary
}

// HandleSummary handles GET /summary.
func (h *ProjectionHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r, "api.get_summary")
	if !ok {
		return
	}
	sum := roster.Summarize(snap.Projections, snap.Reliability, h.deps.Matcher())
	writeJSON(w, http.StatusOK, summaryResponse{meta: metaOf(snap), Summary: sum})
}
