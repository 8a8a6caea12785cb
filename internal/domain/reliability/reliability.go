// Package reliability measures how well weekly expert consensus ranks have
// ordered each player's own weekly results.
package reliability

import (
	"math"
	"sort"

	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/names"
	"github.com/okian/gridcast/internal/domain/stats"
)

// Defaults for the estimator.
const (
	DefaultMinGames  = 3
	DefaultHitWindow = 3.0
)

type estimator struct {
	norm      names.Normalizer
	minGames  int
	hitWindow float64
}

// Option applies a configuration option to the estimator.
type Option func(*estimator)

// WithNormalizer replaces the name join strategy.
func WithNormalizer(n names.Normalizer) Option {
	return func(e *estimator) {
		if n != nil {
			e.norm = n
		}
	}
}

// WithMinGames sets both the recorded-week and matched-week minimum.
func WithMinGames(n int) Option {
	return func(e *estimator) {
		if n > 0 {
			e.minGames = n
		}
	}
}

// WithHitWindow sets the rank distance that still counts as a hit.
func WithHitWindow(w float64) Option {
	return func(e *estimator) {
		if w >= 0 {
			e.hitWindow = w
		}
	}
}

// Estimate returns a ReliabilityStat per player name in current. Players
// with fewer than the minimum recorded weeks, or fewer than the minimum
// weeks matched against a positive ECR rank, are left out. ECR weeks are
// visited in ascending order.
func Estimate(current model.Season, weekly model.WeeklyECR, opts ...Option) map[string]model.ReliabilityStat {
	e := &estimator{norm: names.Default, minGames: DefaultMinGames, hitWindow: DefaultHitWindow}
	for _, opt := range opts {
		opt(e)
	}

	weeks := weekly.Weeks()
	tables := make(map[int]*names.Index[model.ECREntry], len(weeks))
	for _, w := range weeks {
		tables[w] = names.NewIndex(e.norm, weekly[w], func(en model.ECREntry) string { return en.Name })
	}

	out := make(map[string]model.ReliabilityStat)
	for _, p := range current {
		if p.Games() < e.minGames {
			continue
		}
		if _, dup := out[p.Name]; dup {
			continue
		}
		if st, ok := e.estimatePlayer(p, weeks, tables); ok {
			out[p.Name] = st
		}
	}
	return out
}

func (e *estimator) estimatePlayer(p model.PlayerSeason, weeks []int, tables map[int]*names.Index[model.ECREntry]) (model.ReliabilityStat, bool) {
	details := make([]model.WeekDetail, 0, len(weeks))
	for _, w := range weeks {
		score, played := p.Weeks[w]
		if !played {
			continue
		}
		entry, ok := tables[w].Lookup(p.Name)
		if !ok || entry.Rank <= 0 {
			continue
		}
		details = append(details, model.WeekDetail{Week: w, ECRRank: entry.Rank, Actual: score})
	}
	if len(details) < e.minGames {
		return model.ReliabilityStat{}, false
	}

	actuals := make([]float64, len(details))
	for i, d := range details {
		actuals[i] = d.Actual
	}
	ranks := stats.CompetitionRanks(actuals)

	ecr := make([]float64, len(details))
	act := make([]float64, len(details))
	var absSum, diffSum float64
	hits := 0
	for i := range details {
		details[i].ActualRank = ranks[i]
		ecr[i] = details[i].ECRRank
		act[i] = float64(ranks[i])
		diff := act[i] - ecr[i]
		diffSum += diff
		absSum += math.Abs(diff)
		if math.Abs(diff) <= e.hitWindow {
			hits++
		}
	}
	n := float64(len(details))
	return model.ReliabilityStat{
		Name:        p.Name,
		Position:    p.Position,
		Games:       len(details),
		Correlation: stats.Pearson(ecr, act),
		MAE:         absSum / n,
		HitRate:     float64(hits) / n,
		Bias:        diffSum / n,
		Weeks:       details,
	}, true
}

// PositionSummary aggregates reliability across one position.
type PositionSummary struct {
	Position       model.Position `json:"pos"`
	Players        int            `json:"players"`
	AvgCorrelation float64        `json:"avg_correlation"`
	AvgMAE         float64        `json:"avg_mae"`
	AvgHitRate     float64        `json:"avg_hit_rate"`
}

// Summarize averages the per-player stats for every skill position.
// Positions without players report zeros.
func Summarize(all map[string]model.ReliabilityStat) []PositionSummary {
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	acc := make(map[model.Position]*PositionSummary, len(model.Positions))
	for _, pos := range model.Positions {
		acc[pos] = &PositionSummary{Position: pos}
	}
	for _, k := range keys {
		st := all[k]
		s, ok := acc[st.Position]
		if !ok {
			continue
		}
		s.Players++
		s.AvgCorrelation += st.Correlation
		s.AvgMAE += st.MAE
		s.AvgHitRate += st.HitRate
	}

	out := make([]PositionSummary, 0, len(model.Positions))
	for _, pos := range model.Positions {
		s := acc[pos]
		if s.Players > 0 {
			n := float64(s.Players)
			s.AvgCorrelation /= n
			s.AvgMAE /= n
			s.AvgHitRate /= n
		}
		out = append(out, *s)
	}
	return out
}
