package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/gridcast/internal/domain/lineup"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/roster"
	"github.com/okian/gridcast/pkg/logger"
)

// RosterHandler handles roster injection, platform sync and the lineup
// optimizer.
type RosterHandler struct {
	deps  RosterDependencies
	reads SnapshotDependencies
	log   logger.Logger
	now   func() time.Time
}

// NewRosterHandler creates a new roster handler.
func NewRosterHandler(deps RosterDependencies, reads SnapshotDependencies, log logger.Logger) *RosterHandler {
	return &RosterHandler{deps: deps, reads: reads, log: log, now: time.Now}
}

type rosterResponse struct {
	roster.Roster
	MyCount int `json:"my_count"`
}

// HandleRoster handles GET and POST /roster.
func (h *RosterHandler) HandleRoster(w http.ResponseWriter, r *http.Request) {
	const op = "api.roster"
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, rosterResponse{Roster: h.deps.Roster(), MyCount: h.reads.Matcher().MineCount()})
	case http.MethodPost:
		var req roster.Roster
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		if strings.TrimSpace(req.Source) == "" {
			req.Source = "manual"
		}
		saved := h.deps.SetRoster(r.Context(), req)
		writeJSON(w, http.StatusOK, rosterResponse{Roster: saved, MyCount: h.reads.Matcher().MineCount()})
	default:
		http.NotFound(w, r)
	}
}

type sleeperRosterRequest struct {
	Username string `json:"username"`
	LeagueID string `json:"league_id"`
}

// HandleSleeperRoster handles POST /roster/sleeper.
func (h *RosterHandler) HandleSleeperRoster(w http.ResponseWriter, r *http.Request) {
	const op = "api.roster_sleeper"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req sleeperRosterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.LeagueID = strings.TrimSpace(req.LeagueID)
	if req.Username == "" || req.LeagueID == "" {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}
	saved, err := h.deps.SyncSleeper(r.Context(), req.Username, req.LeagueID)
	if err != nil {
		h.log.Warn(r.Context(), "sleeper roster sync failed",
			logger.String("username", req.Username),
			logger.String("leagueId", req.LeagueID),
			logger.Error(err))
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rosterResponse{Roster: saved, MyCount: h.reads.Matcher().MineCount()})
}

type leaguesResponse struct {
	Username string         `json:"username"`
	Season   int            `json:"season"`
	Leagues  []model.League `json:"leagues"`
}

// HandleSleeperLeagues handles GET /sleeper/leagues?username=&season=.
// The season defaults to the current year.
func (h *RosterHandler) HandleSleeperLeagues(w http.ResponseWriter, r *http.Request) {
	const op = "api.sleeper_leagues"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}
	season := h.now().Year()
	if raw := strings.TrimSpace(r.URL.Query().Get("season")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 2000 {
			writeError(w, NewKind(op, ErrBadRequest))
			return
		}
		season = n
	}
	leagues, err := h.deps.SleeperLeagues(r.Context(), username, season)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, leaguesResponse{Username: username, Season: season, Leagues: leagues})
}

type lineupRequest struct {
	Scoring string        `json:"scoring"`
	Slots   *lineup.Slots `json:"slots"`
}

// HandleLineup handles POST /lineup. Missing slots use the default lineup
// shape.
func (h *RosterHandler) HandleLineup(w http.ResponseWriter, r *http.Request) {
	const op = "api.lineup"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req lineupRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, WrapKind(op, ErrBadRequest, err))
			return
		}
	}
	var scoring model.ScoringSystem
	if strings.TrimSpace(req.Scoring) != "" {
		sc, err := model.ParseScoringSystem(req.Scoring)
		if err != nil {
			writeError(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		scoring = sc
	}
	slots := lineup.DefaultSlots()
	if req.Slots != nil {
		slots = *req.Slots
	}
	lu, err := h.deps.Lineup(r.Context(), scoring, slots)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, lu)
}
