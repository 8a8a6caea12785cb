package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/gridcast/internal/adapters/http/api"
	"github.com/okian/gridcast/internal/adapters/repository"
	"github.com/okian/gridcast/internal/adapters/sleeper"
	service "github.com/okian/gridcast/internal/app"
	"github.com/okian/gridcast/internal/domain/lineup"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/names"
	"github.com/okian/gridcast/internal/domain/reliability"
	"github.com/okian/gridcast/internal/domain/roster"
	"github.com/okian/gridcast/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// Mock implementations for testing
type mockDependencies struct {
	snap       *repository.Snapshot
	snapErr    error
	roster     roster.Roster
	matcher    *roster.Matcher
	syncErr    error
	leagues    []model.League
	uploads    []model.ECRUpload
	uploadErr  error
	seen       map[string]bool
	lastSlots  lineup.Slots
	lastScore  model.ScoringSystem
	lastSeason int
}

func newMockDependencies() *mockDependencies {
	projections := []model.Projection{
		{Name: "Josh Allen", Position: model.QB, Projected: 26, Floor: 20, Ceiling: 32, Average: 25, Games: 3, HasECR: true, ECRRank: 1, Rank: 1, Tier: model.TierElite, Trend: model.TrendStable},
		{Name: "Bijan Robinson", Position: model.RB, Projected: 19, Floor: 14, Ceiling: 24, Average: 17, Games: 3, HasECR: true, ECRRank: 2, Rank: 1, Tier: model.TierElite, Trend: model.TrendUp},
		{Name: "Jalen Hurts", Position: model.QB, Projected: 18, Floor: 13, Ceiling: 23, Average: 19, Games: 3, HasECR: true, ECRRank: 3, Rank: 2, Tier: model.TierElite, Trend: model.TrendDown},
		{Name: "Travis Kelce", Position: model.TE, Projected: 10, Floor: 7, Ceiling: 13, Average: 10, Games: 3, ECRRank: model.NoECRRank, Rank: 1, Tier: model.TierElite, Trend: model.TrendStable},
	}
	rel := map[string]model.ReliabilityStat{
		"Josh Allen":     {Name: "Josh Allen", Position: model.QB, Games: 3, Correlation: 0.9, MAE: 0.5, HitRate: 1, Bias: 0},
		"Jalen Hurts":    {Name: "Jalen Hurts", Position: model.QB, Games: 3, Correlation: 0.2, MAE: 1.5, HitRate: 0.33, Bias: 2},
		"Bijan Robinson": {Name: "Bijan Robinson", Position: model.RB, Games: 3, Correlation: 0.5, MAE: 1, HitRate: 0.66, Bias: -2},
	}
	return &mockDependencies{
		snap: &repository.Snapshot{
			ID: "snap-1", Scoring: model.PPR, Version: 3, CurrentWeek: 3, NextWeek: 4, BaselineYear: 2024,
			Baselines:   model.Baselines{model.QB: {25, 20}},
			Reliability: rel,
			Projections: projections,
			Positions:   reliability.Summarize(rel),
		},
		matcher: roster.NewMatcher(names.Default, roster.Roster{}),
		seen:    make(map[string]bool),
	}
}

func (m *mockDependencies) Snapshot(_ context.Context, scoring model.ScoringSystem) (*repository.Snapshot, error) {
	m.lastScore = scoring
	return m.snap, m.snapErr
}

func (m *mockDependencies) Matcher() *roster.Matcher { return m.matcher }

func (m *mockDependencies) SetRoster(_ context.Context, r roster.Roster) roster.Roster {
	m.roster = r
	m.matcher = roster.NewMatcher(names.Default, r)
	return r
}

func (m *mockDependencies) Roster() roster.Roster { return m.roster }

func (m *mockDependencies) SyncSleeper(ctx context.Context, username, leagueID string) (roster.Roster, error) {
	if m.syncErr != nil {
		return roster.Roster{}, m.syncErr
	}
	return m.SetRoster(ctx, roster.Roster{Mine: []string{"Josh Allen"}, Source: "sleeper:" + leagueID}), nil
}

func (m *mockDependencies) SleeperLeagues(_ context.Context, _ string, season int) ([]model.League, error) {
	m.lastSeason = season
	return m.leagues, m.syncErr
}

func (m *mockDependencies) Lineup(_ context.Context, scoring model.ScoringSystem, slots lineup.Slots) (lineup.Lineup, error) {
	m.lastScore = scoring
	m.lastSlots = slots
	return lineup.Optimize(m.snap.Projections, slots), nil
}

func (m *mockDependencies) UploadECR(_ context.Context, up model.ECRUpload) (model.UploadResult, error) {
	if m.uploadErr != nil {
		return model.UploadResult{}, m.uploadErr
	}
	res := model.UploadResult{ID: up.ID, Week: up.Week, Accepted: len(up.Entries), Version: 4}
	if m.seen[up.ID] {
		res.Duplicate = true
		return res, nil
	}
	m.seen[up.ID] = true
	m.uploads = append(m.uploads, up)
	return res, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type playersResponse struct {
	Scoring model.ScoringSystem `json:"scoring"`
	Version uint64              `json:"version"`
	Count   int                 `json:"count"`
	Players []api.ProjectionRow `json:"players"`
}

func newMux(deps *mockDependencies, opts ...api.Option) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, contentType, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodePlayers(w *httptest.ResponseRecorder) playersResponse {
	var resp playersResponse
	So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
	return resp
}

func playerNames(rows []api.ProjectionRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		mux := newMux(newMockDependencies())

		Convey("Then health endpoint should serve metrics", func() {
			w := do(mux, "GET", "/healthz", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats endpoint should be accessible", func() {
			w := do(mux, "GET", "/stats", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "started")
		})

		Convey("Then every read route answers", func() {
			for _, path := range []string{"/projections", "/reliability", "/positions", "/rankings/QB", "/waiver", "/historical", "/baselines", "/summary", "/roster"} {
				w := do(mux, "GET", path, "", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
			}
		})

		Convey("Then wrong methods are not found", func() {
			So(do(mux, "POST", "/projections", "", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, "GET", "/ecr", "", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, "GET", "/lineup", "", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestProjectionHandler(t *testing.T) {
	Convey("Given a snapshot with four players", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps, api.WithMaxLimit(10))

		Convey("When the full table is requested", func() {
			resp := decodePlayers(do(mux, "GET", "/projections", "", ""))

			Convey("Then the engine order is kept", func() {
				So(resp.Count, ShouldEqual, 4)
				So(resp.Version, ShouldEqual, 3)
				So(playerNames(resp.Players), ShouldResemble, []string{"Josh Allen", "Bijan Robinson", "Jalen Hurts", "Travis Kelce"})
			})
		})

		Convey("When a row holds a value JSON cannot encode", func() {
			deps.snap.Projections[0].Floor = math.NaN()
			w := do(mux, "GET", "/projections", "", "")

			Convey("Then the response is an internal error, not an empty 200", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				var resp errorResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Code, ShouldEqual, "internal_error")
			})
		})

		Convey("When filtering by position and search", func() {
			resp := decodePlayers(do(mux, "GET", "/projections?pos=qb&q=HURTS", "", ""))
			So(playerNames(resp.Players), ShouldResemble, []string{"Jalen Hurts"})
		})

		Convey("When sorting by a text column", func() {
			resp := decodePlayers(do(mux, "GET", "/projections?sort=name", "", ""))

			Convey("Then it sorts ascending by default", func() {
				So(playerNames(resp.Players)[0], ShouldEqual, "Bijan Robinson")
			})
		})

		Convey("When sorting by a numeric column", func() {
			resp := decodePlayers(do(mux, "GET", "/projections?sort=ecr_rank", "", ""))
			So(playerNames(resp.Players)[0], ShouldEqual, "Travis Kelce")

			Convey("Then dir overrides the default", func() {
				resp := decodePlayers(do(mux, "GET", "/projections?sort=ecr_rank&dir=asc&limit=2", "", ""))
				So(playerNames(resp.Players), ShouldResemble, []string{"Josh Allen", "Bijan Robinson"})
			})
		})

		Convey("When a roster is set", func() {
			deps.SetRoster(context.Background(), roster.Roster{Mine: []string{"Josh Allen"}, Rostered: []string{"Jalen Hurts"}})

			Convey("Then MY_ROSTER keeps only my players", func() {
				resp := decodePlayers(do(mux, "GET", "/projections?roster=my_roster", "", ""))
				So(playerNames(resp.Players), ShouldResemble, []string{"Josh Allen"})
				So(resp.Players[0].OnRoster, ShouldBeTrue)
			})

			Convey("Then AVAILABLE drops everyone rostered", func() {
				resp := decodePlayers(do(mux, "GET", "/projections?roster=AVAILABLE", "", ""))
				So(playerNames(resp.Players), ShouldResemble, []string{"Bijan Robinson", "Travis Kelce"})
			})

			Convey("Then the waiver list only offers available players", func() {
				w := do(mux, "GET", "/waiver?min=15", "", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Players []roster.WaiverEntry `json:"players"`
				}
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(len(resp.Players), ShouldEqual, 1)
				So(resp.Players[0].Name, ShouldEqual, "Bijan Robinson")
				So(resp.Players[0].Priority, ShouldEqual, roster.PriorityHot)
			})

			Convey("Then the summary counts them", func() {
				w := do(mux, "GET", "/summary", "", "")
				var resp map[string]interface{}
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp["total_players"], ShouldEqual, 4)
				So(resp["with_ecr"], ShouldEqual, 3)
				So(resp["high_accuracy"], ShouldEqual, 1)
				So(resp["my_roster"], ShouldEqual, 1)
				So(resp["available"], ShouldEqual, 2)
			})
		})

		Convey("When the request is malformed", func() {
			So(do(mux, "GET", "/projections?scoring=ppx", "", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/projections?pos=K", "", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/projections?roster=mine", "", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/projections?sort=height", "", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/projections?sort=name&dir=up", "", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/projections?limit=11", "", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/waiver?min=lots", "", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the scoring system is named", func() {
			do(mux, "GET", "/projections?scoring=half", "", "")
			So(deps.lastScore, ShouldEqual, model.HalfPPR)
		})

		Convey("When the service is not ready", func() {
			deps.snapErr = fmt.Errorf("read: %w", service.ErrNotStarted)
			w := do(mux, "GET", "/projections", "", "")

			Convey("Then it should return internal server error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				var resp errorResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Code, ShouldEqual, "internal_error")
			})
		})
	})
}

func TestProjectionHandler_Reliability(t *testing.T) {
	Convey("Given a snapshot with reliability stats", t, func() {
		mux := newMux(newMockDependencies())

		Convey("When listing without a sort", func() {
			w := do(mux, "GET", "/reliability", "", "")
			var resp struct {
				Count   int                  `json:"count"`
				Players []api.ReliabilityRow `json:"players"`
			}
			So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)

			Convey("Then the most correlated players come first", func() {
				So(resp.Count, ShouldEqual, 3)
				So(resp.Players[0].Name, ShouldEqual, "Josh Allen")
				So(resp.Players[2].Name, ShouldEqual, "Jalen Hurts")
			})

			Convey("Then rows carry the season average and trend", func() {
				So(resp.Players[0].Average, ShouldEqual, 25)
				So(resp.Players[2].Trend, ShouldEqual, model.TrendDown)
				So(resp.Players[1].Trend, ShouldEqual, model.TrendUp)
			})
		})

		Convey("When filtering by position", func() {
			w := do(mux, "GET", "/reliability?pos=RB", "", "")
			So(w.Body.String(), ShouldContainSubstring, "Bijan Robinson")
			So(w.Body.String(), ShouldNotContainSubstring, "Josh Allen")
		})
	})
}

func TestProjectionHandler_Rankings(t *testing.T) {
	Convey("Given a rankings request", t, func() {
		mux := newMux(newMockDependencies())

		Convey("When the position is valid", func() {
			w := do(mux, "GET", "/rankings/qb", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			resp := decodePlayers(w)
			So(playerNames(resp.Players), ShouldResemble, []string{"Josh Allen", "Jalen Hurts"})
		})

		Convey("When the position is unknown", func() {
			So(do(mux, "GET", "/rankings/K", "", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the path is malformed", func() {
			So(do(mux, "GET", "/rankings/QB/extra", "", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRosterHandler(t *testing.T) {
	Convey("Given a roster handler", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When a roster is posted", func() {
			w := do(mux, "POST", "/roster", "application/json", `{"my_roster":["Josh Allen","Travis Kelce"],"all_rostered":["Jalen Hurts"]}`)

			Convey("Then it is saved with a default source", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.roster.Source, ShouldEqual, "manual")
				So(w.Body.String(), ShouldContainSubstring, `"my_count":2`)
			})
		})

		Convey("When the body is not JSON", func() {
			So(do(mux, "POST", "/roster", "application/json", "{").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When syncing from Sleeper", func() {
			w := do(mux, "POST", "/roster/sleeper", "application/json", `{"username":"me","league_id":"42"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.roster.Source, ShouldEqual, "sleeper:42")
		})

		Convey("When the Sleeper user is not in the league", func() {
			deps.syncErr = fmt.Errorf("resolve: %w", sleeper.ErrNotInLeague)
			So(do(mux, "POST", "/roster/sleeper", "application/json", `{"username":"me","league_id":"42"}`).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When Sleeper is down", func() {
			deps.syncErr = fmt.Errorf("resolve: %w", sleeper.ErrUpstream)
			So(do(mux, "POST", "/roster/sleeper", "application/json", `{"username":"me","league_id":"42"}`).Code, ShouldEqual, http.StatusBadGateway)
		})

		Convey("When no platform is configured", func() {
			deps.syncErr = service.ErrNoResolver
			So(do(mux, "GET", "/sleeper/leagues?username=me", "", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the Sleeper request is incomplete", func() {
			So(do(mux, "POST", "/roster/sleeper", "application/json", `{"username":"me"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/sleeper/leagues", "", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/sleeper/leagues?username=me&season=abc", "", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When listing leagues for a season", func() {
			deps.leagues = []model.League{{ID: "42", Name: "Work", Season: "2024", TotalRosters: 10}}
			w := do(mux, "GET", "/sleeper/leagues?username=me&season=2024", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastSeason, ShouldEqual, 2024)
			So(w.Body.String(), ShouldContainSubstring, `"league_id":"42"`)
		})

		Convey("When a lineup is requested without a body", func() {
			w := do(mux, "POST", "/lineup", "", "")

			Convey("Then the default slots are used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastSlots, ShouldResemble, lineup.DefaultSlots())
			})
		})

		Convey("When a lineup is requested with slots", func() {
			w := do(mux, "POST", "/lineup", "application/json", `{"scoring":"std","slots":{"qb":2}}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastScore, ShouldEqual, model.Standard)
			So(deps.lastSlots, ShouldResemble, lineup.Slots{QB: 2})
		})
	})
}

func TestECRHandler(t *testing.T) {
	Convey("Given an ECR upload handler", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When a JSON table is posted", func() {
			body := `{"upload_id":"u1","week":5,"entries":[{"name":"Josh Allen","pos":"QB","ecr":1,"std":0.5}]}`
			w := do(mux, "POST", "/ecr", "application/json", body)

			Convey("Then it is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.uploads, ShouldHaveLength, 1)
				So(deps.uploads[0].Entries[0].Rank, ShouldEqual, 1)
			})

			Convey("Then a replay is a duplicate", func() {
				again := do(mux, "POST", "/ecr", "application/json", body)
				So(again.Code, ShouldEqual, http.StatusOK)
				So(again.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When a FantasyPros CSV is posted", func() {
			csv := "RK,TIERS,PLAYER NAME,TEAM,POS,BEST,WORST,AVG.,STD.DEV,ECR VS. ADP\n" +
				"1,1,Josh Allen,BUF,QB1,1,3,1.4,0.6,0\n" +
				"2,1,Bijan Robinson,ATL,RB1,1,4,1.9,0.9,0\n"
			w := do(mux, "POST", "/ecr?week=6&upload_id=csv-6", "text/csv", csv)

			Convey("Then the rows are parsed from the export", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.uploads, ShouldHaveLength, 1)
				So(deps.uploads[0].Week, ShouldEqual, 6)
				So(deps.uploads[0].ID, ShouldEqual, "csv-6")
				So(deps.uploads[0].Entries, ShouldHaveLength, 2)
				So(deps.uploads[0].Entries[1].Position, ShouldEqual, model.RB)
			})
		})

		Convey("When a CSV has no week", func() {
			So(do(mux, "POST", "/ecr", "text/csv", "PLAYER NAME,POS,STD.DEV\n").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the service rejects the upload", func() {
			deps.uploadErr = fmt.Errorf("apply: %w", service.ErrInvalidUpload)
			So(do(mux, "POST", "/ecr", "application/json", `{"week":30}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("Given an upload rate limit", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps, api.WithUploadRateLimit(0.001, 1))
		body := `{"week":5,"entries":[{"name":"Josh Allen","pos":"QB","ecr":1}]}`

		Convey("Then requests over the burst get 429", func() {
			So(do(mux, "POST", "/ecr", "application/json", body).Code, ShouldEqual, http.StatusAccepted)
			w := do(mux, "POST", "/ecr", "application/json", body)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(w.Header().Get("Retry-After"), ShouldEqual, "1")
		})
	})
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	Convey("Given a health handler", t, func() {
		handler := api.NewHealthHandler()

		Convey("When handling health check request", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return OK status", func() {
				handler.HandleHealth(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		mockStats := &mockStatsProvider{
			stats: map[string]interface{}{
				"queueLength": 3,
				"snapshots":   2,
			},
		}
		handler := api.NewStatsHandler(mockStats)

		Convey("When handling stats request", func() {
			req := httptest.NewRequest("GET", "/stats", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return stats", func() {
				handler.HandleStats(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response map[string]interface{}
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response["queueLength"], ShouldEqual, 3)
				So(response["snapshots"], ShouldEqual, 2)
				So(response, ShouldContainKey, "uptimeSeconds")
			})

			Convey("Then other methods are rejected", func() {
				handler.HandleStats(w, httptest.NewRequest("POST", "/stats", nil))
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}
