// Package projection converts next-period ECR ranks into projected points
// and blends them with each player's own scoring history.
package projection

import (
	"math"
	"sort"

	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/names"
)

// Engine computes projections. It is stateless between calls and safe for
// concurrent use.
type Engine struct {
	params Params
	norm   names.Normalizer
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithParams replaces the engine constants.
func WithParams(p Params) Option {
	return func(e *Engine) {
		if p.Tiers == nil {
			p.Tiers = DefaultParams().Tiers
		}
		e.params = p
	}
}

// WithNormalizer replaces the name join strategy.
func WithNormalizer(n names.Normalizer) Option {
	return func(e *Engine) {
		if n != nil {
			e.norm = n
		}
	}
}

// NewEngine creates an Engine with default parameters.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{params: DefaultParams(), norm: names.Default}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the constants in use.
func (e *Engine) Params() Params { return e.params }

// Project returns one projection per player with at least one recorded
// week, sorted by projected points descending. Equal projections keep the
// season order. An empty season yields an empty, non-nil slice.
func (e *Engine) Project(current model.Season, next []model.ECREntry, baselines model.Baselines, rel map[string]model.ReliabilityStat) []model.Projection {
	out := make([]model.Projection, 0, len(current))
	if len(current) == 0 {
		return out
	}

	ecr := names.NewIndex(e.norm, next, func(en model.ECREntry) string { return en.Name })
	for _, p := range current {
		if p.Games() == 0 {
			continue
		}
		out = append(out, e.projectPlayer(p, ecr, baselines, rel))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Projected > out[j].Projected })

	counters := make(map[model.Position]int, len(model.Positions))
	for i := range out {
		counters[out[i].Position]++
		out[i].Rank = counters[out[i].Position]
		out[i].Tier = e.params.Tier(out[i].Position, out[i].Rank)
	}
	return out
}

func (e *Engine) projectPlayer(p model.PlayerSeason, ecr *names.Index[model.ECREntry], baselines model.Baselines, rel map[string]model.ReliabilityStat) model.Projection {
	prm := e.params
	avg := p.Average()
	pr := model.Projection{
		Name:      p.Name,
		Position:  p.Position,
		Average:   avg,
		Games:     p.Games(),
		Projected: avg,
		Floor:     avg * prm.NoECRFloorRatio,
		Ceiling:   avg * prm.NoECRCeilingRatio,
		ECRRank:   model.NoECRRank,
		Trend:     model.TrendStable,
	}

	st, hasStat := rel[p.Name]
	if hasStat {
		pr.Correlation = st.Correlation
		pr.MAE = st.MAE
		pr.HitRate = st.HitRate
		pr.Bias = st.Bias
		pr.Trend = model.TrendFor(st.Bias)
	}

	entry, ok := ecr.Lookup(p.Name)
	if !ok || entry.Rank <= 0 {
		return pr
	}
	pr.HasECR = true
	pr.ECRRank = entry.Rank

	proj := e.pointsForRank(entry.Rank, baselines.At(p.Position), avg)
	std := entry.StdDev
	if !(std > 0) || math.IsInf(std, 0) {
		std = prm.DefaultStdDev
	}
	pr.Floor = math.Max(proj-prm.StdDevWeight*std, prm.FloorRatio*proj)
	pr.Ceiling = proj + prm.StdDevWeight*std

	if hasStat && st.Games >= prm.MinReliabilityGames {
		if st.Correlation > prm.BlendThreshold {
			proj = st.Correlation*proj + (1-st.Correlation)*avg
		}
		if math.Abs(st.Bias) > prm.BiasThreshold {
			proj += -prm.BiasWeight * st.Bias
		}
	}
	pr.Projected = proj
	return pr
}

// pointsForRank reads the baseline at the rank's index, extrapolating past
// the end of the curve. An empty curve extrapolates from avg.
func (e *Engine) pointsForRank(rank float64, curve []float64, avg float64) float64 {
	index := int(math.Floor(rank)) - 1
	if index < 0 {
		index = 0
	}
	if index < len(curve) {
		return curve[index]
	}
	last := avg
	if len(curve) > 0 {
		last = curve[len(curve)-1]
	}
	return math.Max(last-e.params.DropPerRank*float64(index-len(curve)), e.params.MinExtrapolated)
}
