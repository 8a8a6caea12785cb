// Package sleeper is a small client for the public Sleeper fantasy API,
// enough to resolve which players a user and their league have rostered.
package sleeper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/roster"
	"github.com/okian/gridcast/pkg/logger"
	"github.com/okian/gridcast/pkg/metrics"
	"golang.org/x/time/rate"
)

// Default client settings.
const (
	DefaultBaseURL   = "https://api.sleeper.app"
	DefaultTimeout   = 15 * time.Second
	DefaultPlayerTTL = 12 * time.Hour
	DefaultRate      = 10 // requests per second; Sleeper asks for under 1000 per minute
	defaultBurst     = 5
	defaultUserAgent = "gridcast/1.0"
	maxErrorBody     = 512
)

// User is a Sleeper account.
type User struct {
	ID          string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// League is a Sleeper league as listed for a user.
type League struct {
	ID           string `json:"league_id"`
	Name         string `json:"name"`
	Season       string `json:"season"`
	TotalRosters int    `json:"total_rosters"`
}

// Roster is one team in a league.
type Roster struct {
	RosterID int      `json:"roster_id"`
	OwnerID  string   `json:"owner_id"`
	Players  []string `json:"players"`
}

// Player is an entry of the NFL player directory.
type Player struct {
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Position  string `json:"position"`
}

// Name is the display name, built from first and last when full is absent.
func (p Player) Name() string {
	if p.FullName != "" {
		return p.FullName
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Client talks to the Sleeper API. The player directory is large, so it is
// kept in memory for the configured TTL.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	ttl       time.Duration
	limiter   *rate.Limiter
	log       logger.Logger

	mu        sync.Mutex
	players   map[string]Player
	fetchedAt time.Time
	now       func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithPlayerTTL sets how long the player directory is reused.
func WithPlayerTTL(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a Client with defaults applied.
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: DefaultTimeout},
		baseURL:   DefaultBaseURL,
		userAgent: defaultUserAgent,
		ttl:       DefaultPlayerTTL,
		limiter:   rate.NewLimiter(DefaultRate, defaultBurst),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("sleeper")
	}
	return c
}

// getJSON fetches path and decodes the body into out. Sleeper answers unknown
// users with 200 and a literal null, which is reported as ErrNotFound.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, out any) error {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.RecordSleeperRequest(endpoint, status, float64(time.Since(start).Milliseconds()))
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit: %v", ErrUpstream, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrUpstream, path, err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: GET %s: %s (%s)", ErrUpstream, path, resp.Status, strings.TrimSpace(string(b)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrUpstream, path, err)
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed == "" || trimmed == "null" {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUpstream, path, err)
	}
	return nil
}

// User looks an account up by username or id.
func (c *Client) User(ctx context.Context, username string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, fmt.Errorf("%w: empty username", ErrBadInput)
	}
	var u User
	if err := c.getJSON(ctx, "user", "/v1/user/"+url.PathEscape(username), &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Leagues lists a user's NFL leagues for season.
func (c *Client) Leagues(ctx context.Context, userID string, season int) ([]League, error) {
	var out []League
	path := fmt.Sprintf("/v1/user/%s/leagues/nfl/%d", url.PathEscape(userID), season)
	if err := c.getJSON(ctx, "leagues", path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Rosters lists every roster in a league.
func (c *Client) Rosters(ctx context.Context, leagueID string) ([]Roster, error) {
	var out []Roster
	if err := c.getJSON(ctx, "rosters", "/v1/league/"+url.PathEscape(leagueID)+"/rosters", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Users lists the members of a league.
func (c *Client) Users(ctx context.Context, leagueID string) ([]User, error) {
	var out []User
	if err := c.getJSON(ctx, "league_users", "/v1/league/"+url.PathEscape(leagueID)+"/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Players returns the NFL player directory keyed by Sleeper player id.
func (c *Client) Players(ctx context.Context) (map[string]Player, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.players != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.players, nil
	}
	var out map[string]Player
	if err := c.getJSON(ctx, "players", "/v1/players/nfl", &out); err != nil {
		if c.players != nil {
			c.log.Warn(ctx, "player directory refresh failed, serving stale copy", logger.Error(err))
			return c.players, nil
		}
		return nil, err
	}
	c.players, c.fetchedAt = out, c.now()
	c.log.Info(ctx, "player directory refreshed", logger.Int("players", len(out)))
	return out, nil
}

// LeaguesFor resolves username and lists their leagues for season.
func (c *Client) LeaguesFor(ctx context.Context, username string, season int) ([]model.League, error) {
	u, err := c.User(ctx, username)
	if err != nil {
		return nil, err
	}
	leagues, err := c.Leagues(ctx, u.ID, season)
	if err != nil {
		return nil, err
	}
	out := make([]model.League, 0, len(leagues))
	for _, l := range leagues {
		out = append(out, model.League{ID: l.ID, Name: l.Name, Season: l.Season, TotalRosters: l.TotalRosters})
	}
	return out, nil
}

// ResolveRoster builds the user's roster and the league-wide rostered set.
// Only skill-position players are kept; ids missing from the directory are
// ignored.
func (c *Client) ResolveRoster(ctx context.Context, username, leagueID string) (roster.Roster, error) {
	if strings.TrimSpace(leagueID) == "" {
		return roster.Roster{}, fmt.Errorf("%w: empty league id", ErrBadInput)
	}
	u, err := c.User(ctx, username)
	if err != nil {
		return roster.Roster{}, err
	}
	rosters, err := c.Rosters(ctx, leagueID)
	if err != nil {
		return roster.Roster{}, err
	}
	players, err := c.Players(ctx)
	if err != nil {
		return roster.Roster{}, err
	}

	var (
		mine  []string
		all   []string
		found bool
	)
	for _, r := range rosters {
		names := playerNames(players, r.Players)
		all = append(all, names...)
		if r.OwnerID == u.ID {
			mine = append(mine, names...)
			found = true
		}
	}
	if !found {
		return roster.Roster{}, fmt.Errorf("%w: %s in %s", ErrNotInLeague, username, leagueID)
	}
	c.log.Info(ctx, "sleeper roster resolved",
		logger.String("league_id", leagueID),
		logger.Int("mine", len(mine)),
		logger.Int("rostered", len(all)))
	return roster.Roster{
		Mine:      mine,
		Rostered:  all,
		Source:    "sleeper:" + leagueID,
		UpdatedAt: c.now().UTC(),
	}, nil
}

func playerNames(dir map[string]Player, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		p, ok := dir[id]
		if !ok {
			continue
		}
		if _, err := model.ParsePosition(p.Position); err != nil {
			continue
		}
		if n := p.Name(); n != "" {
			out = append(out, n)
		}
	}
	return out
}
