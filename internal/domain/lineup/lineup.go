// Package lineup picks the highest projected starting lineup from a roster.
package lineup

import (
	"sort"

	"github.com/okian/gridcast/internal/domain/model"
)

// Flex is the slot name for the RB/WR/TE flex.
const Flex = "FLEX"

// Slots is the starting lineup shape.
type Slots struct {
	QB   int `json:"qb"`
	RB   int `json:"rb"`
	WR   int `json:"wr"`
	TE   int `json:"te"`
	FLEX int `json:"flex"`
}

// DefaultSlots is a common one-QB, one-flex lineup.
func DefaultSlots() Slots { return Slots{QB: 1, RB: 2, WR: 2, TE: 1, FLEX: 1} }

func (s Slots) count(pos model.Position) int {
	switch pos {
	case model.QB:
		return s.QB
	case model.RB:
		return s.RB
	case model.WR:
		return s.WR
	case model.TE:
		return s.TE
	default:
		return 0
	}
}

// Lineup is the optimizer result.
type Lineup struct {
	Starters map[string][]model.Projection `json:"starters"`
	Bench    []model.Projection            `json:"bench"`
	Total    float64                       `json:"total"`
	Floor    float64                       `json:"floor"`
	Ceiling  float64                       `json:"ceiling"`
}

// slotOrder is the order starters are reported and totalled in.
var slotOrder = []string{string(model.QB), string(model.RB), string(model.WR), string(model.TE), Flex}

// Optimize fills each position's slots with its best projections, then the
// flex with the best leftover RB/WR/TE. Everything else goes to the bench in
// input order. Negative slot counts are treated as zero.
func Optimize(players []model.Projection, slots Slots) Lineup {
	byPos := make(map[model.Position][]model.Projection, len(model.Positions))
	for _, p := range players {
		byPos[p.Position] = append(byPos[p.Position], p)
	}

	lu := Lineup{
		Starters: make(map[string][]model.Projection, len(slotOrder)),
		Bench:    make([]model.Projection, 0),
	}
	var flexPool []model.Projection
	for _, pos := range model.Positions {
		starters, rest := best(byPos[pos], slots.count(pos))
		lu.Starters[string(pos)] = starters
		if pos != model.QB {
			flexPool = append(flexPool, rest...)
		}
	}
	lu.Starters[Flex], _ = best(flexPool, slots.FLEX)

	chosen := make(map[string]int)
	for _, slot := range slotOrder {
		for _, p := range lu.Starters[slot] {
			lu.Total += p.Projected
			lu.Floor += p.Floor
			lu.Ceiling += p.Ceiling
			chosen[p.Name]++
		}
	}
	for _, p := range players {
		if chosen[p.Name] > 0 {
			chosen[p.Name]--
			continue
		}
		lu.Bench = append(lu.Bench, p)
	}
	return lu
}

// best sorts a copy of list by projection and splits off the top n.
func best(list []model.Projection, n int) ([]model.Projection, []model.Projection) {
	sorted := append(make([]model.Projection, 0, len(list)), list...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Projected > sorted[j].Projected })
	if n < 0 {
		n = 0
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n:n], sorted[n:]
}
