package model

import "sort"

// ECREntry is one row of an expert consensus ranking table. Rank is the
// positional rank (QB1 -> 1) and may be fractional. StdDev is 0 when the
// feed did not report one.
type ECREntry struct {
	Name     string   `json:"name"`
	Position Position `json:"pos"`
	Rank     float64  `json:"ecr"`
	StdDev   float64  `json:"std"`
}

// WeeklyECR maps a week number to that week's ranking table.
type WeeklyECR map[int][]ECREntry

// Weeks returns the week numbers in ascending order.
func (w WeeklyECR) Weeks() []int {
	weeks := make([]int, 0, len(w))
	for wk := range w {
		weeks = append(weeks, wk)
	}
	sort.Ints(weeks)
	return weeks
}

// Clone returns a shallow copy safe to extend without touching w.
func (w WeeklyECR) Clone() WeeklyECR {
	out := make(WeeklyECR, len(w)+1)
	for wk, entries := range w {
		out[wk] = entries
	}
	return out
}

// Baselines maps a position to its points-per-rank curve, best first.
type Baselines map[Position][]float64

// At returns the curve for pos, or an empty slice.
func (b Baselines) At(pos Position) []float64 {
	if v, ok := b[pos]; ok {
		return v
	}
	return []float64{}
}
