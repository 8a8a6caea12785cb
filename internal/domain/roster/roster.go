// Package roster answers who is on my team, who is taken league-wide, and
// which available players are worth a waiver claim.
package roster

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/names"
)

// Roster is the roster state injected by the browser extension or resolved
// through a fantasy platform.
type Roster struct {
	// Mine lists the player names on the user's team.
	Mine []string `json:"my_roster"`
	// Rostered lists every player on any team in the league.
	Rostered []string `json:"all_rostered"`
	// Source labels where the roster came from, e.g. "sleeper" or "espn".
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Matcher tests names against a Roster using normalized names.
type Matcher struct {
	mine *names.Set
	all  *names.Set
}

// NewMatcher builds a Matcher. Players on the user's team always count as
// rostered. A nil normalizer falls back to names.Default.
func NewMatcher(norm names.Normalizer, r Roster) *Matcher {
	all := make([]string, 0, len(r.Rostered)+len(r.Mine))
	all = append(all, r.Rostered...)
	all = append(all, r.Mine...)
	return &Matcher{mine: names.NewSet(norm, r.Mine), all: names.NewSet(norm, all)}
}

// OnRoster reports whether name is on the user's team.
func (m *Matcher) OnRoster(name string) bool { return m != nil && m.mine.Contains(name) }

// Rostered reports whether any team in the league holds name.
func (m *Matcher) Rostered(name string) bool { return m != nil && m.all.Contains(name) }

// MineCount returns the number of distinct players on the user's team.
func (m *Matcher) MineCount() int {
	if m == nil {
		return 0
	}
	return m.mine.Len()
}

// Filter narrows a projection table by roster status.
type Filter string

// Filters accepted by Keep.
const (
	FilterAll       Filter = "ALL"
	FilterMine      Filter = "MY_ROSTER"
	FilterAvailable Filter = "AVAILABLE"
)

// ParseFilter maps query values to a Filter; empty means ALL.
func ParseFilter(raw string) (Filter, error) {
	switch f := Filter(strings.ToUpper(strings.TrimSpace(raw))); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterMine, FilterAvailable:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFilter, raw)
	}
}

// Keep reports whether name passes f.
func (m *Matcher) Keep(f Filter, name string) bool {
	switch f {
	case FilterMine:
		return m.OnRoster(name)
	case FilterAvailable:
		return !m.Rostered(name)
	default:
		return true
	}
}

// Priority ranks waiver targets.
type Priority string

// Waiver priorities from most to least urgent.
const (
	PriorityHot   Priority = "hot"
	PriorityStar  Priority = "star"
	PriorityWatch Priority = "watch"
)

// DefaultWaiverLimit caps the waiver list.
const DefaultWaiverLimit = 30

// WaiverEntry is a projection annotated with a claim priority.
type WaiverEntry struct {
	model.Projection
	Priority Priority `json:"priority"`
}

// Waiver returns unrostered players projected at or above minProj, best
// first, capped at limit. The top five are hot and the next ten star.
func Waiver(projections []model.Projection, m *Matcher, minProj float64, limit int) []WaiverEntry {
	if limit <= 0 {
		limit = DefaultWaiverLimit
	}
	pool := make([]model.Projection, 0)
	for _, p := range projections {
		if m.Rostered(p.Name) || p.Projected < minProj {
			continue
		}
		pool = append(pool, p)
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Projected > pool[j].Projected })
	if len(pool) > limit {
		pool = pool[:limit]
	}

	out := make([]WaiverEntry, len(pool))
	for i, p := range pool {
		pr := PriorityWatch
		switch {
		case i < 5:
			pr = PriorityHot
		case i < 15:
			pr = PriorityStar
		}
		out[i] = WaiverEntry{Projection: p, Priority: pr}
	}
	return out
}

// HighAccuracyCorrelation is the correlation above which a player counts
// as highly predictable in the summary.
const HighAccuracyCorrelation = 0.7

// Summary carries the headline counts of the dashboard.
type Summary struct {
	TotalPlayers int `json:"total_players"`
	WithECR      int `json:"with_ecr"`
	HighAccuracy int `json:"high_accuracy"`
	MyRoster     int `json:"my_roster"`
	Available    int `json:"available"`
}

// Summarize computes the headline counts.
func Summarize(projections []model.Projection, rel map[string]model.ReliabilityStat, m *Matcher) Summary {
	s := Summary{TotalPlayers: len(projections), MyRoster: m.MineCount()}
	for _, p := range projections {
		if p.HasECR {
			s.WithECR++
		}
		if !m.Rostered(p.Name) {
			s.Available++
		}
	}
	for _, st := range rel {
		if st.Correlation > HighAccuracyCorrelation {
			s.HighAccuracy++
		}
	}
	return s
}

// RankingLimits caps each position's rankings table.
var RankingLimits = map[model.Position]int{
	model.QB: 30,
	model.RB: 41,
	model.WR: 54,
	model.TE: 26,
}

// Rankings returns the first players at pos, in projection order, up to
// the position's display limit.
func Rankings(projections []model.Projection, pos model.Position) []model.Projection {
	limit, ok := RankingLimits[pos]
	if !ok {
		limit = 30
	}
	out := make([]model.Projection, 0, limit)
	for _, p := range projections {
		if p.Position != pos {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}
