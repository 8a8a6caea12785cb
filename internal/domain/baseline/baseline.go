// Package baseline builds the empirical points-per-rank curves used to turn
// an ECR rank into projected points.
package baseline

import (
	"sort"

	"github.com/okian/gridcast/internal/domain/model"
)

// DefaultDepth caps each positional curve.
const DefaultDepth = 100

type builder struct {
	depth int
	year  int
}

// Option applies a configuration option to the builder.
type Option func(*builder)

// WithDepth sets how many ranks each curve keeps.
func WithDepth(depth int) Option {
	return func(b *builder) {
		if depth > 0 {
			b.depth = depth
		}
	}
}

// WithSeason pins BuildFor to a specific historical year instead of the
// most recent one.
func WithSeason(year int) Option {
	return func(b *builder) {
		if year > 0 {
			b.year = year
		}
	}
}

func newBuilder(opts []Option) *builder {
	b := &builder{depth: DefaultDepth}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build computes one curve per skill position from a historical season.
// Each player's seasonal average uses every recorded week, zero weeks
// included. Non-positive averages are dropped and the rest sorted best
// first. Positions without qualifying players map to an empty slice.
func Build(season model.Season, opts ...Option) model.Baselines {
	b := newBuilder(opts)
	out := make(model.Baselines, len(model.Positions))
	for _, pos := range model.Positions {
		avgs := make([]float64, 0)
		for _, p := range season {
			if p.Position != pos {
				continue
			}
			if avg := p.Average(); avg > 0 {
				avgs = append(avgs, avg)
			}
		}
		sort.SliceStable(avgs, func(i, j int) bool { return avgs[i] > avgs[j] })
		if len(avgs) > b.depth {
			avgs = avgs[:b.depth]
		}
		out[pos] = avgs
	}
	return out
}

// BuildFor selects the historical season for scoring from archive (the most
// recent year unless WithSeason pins one) and builds its curves. The year
// used is returned alongside, or 0 when no season was available.
func BuildFor(archive model.Archive, scoring model.ScoringSystem, opts ...Option) (model.Baselines, int) {
	b := newBuilder(opts)
	if b.year > 0 {
		if season, ok := archive[scoring][b.year]; ok {
			return Build(season, opts...), b.year
		}
		return Build(nil, opts...), 0
	}
	year, season, ok := archive.Latest(scoring)
	if !ok {
		return Build(nil, opts...), 0
	}
	return Build(season, opts...), year
}
