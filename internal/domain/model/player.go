// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// Position is a fantasy skill position.
type Position string

// Skill positions tracked by the engine.
const (
	QB Position = "QB"
	RB Position = "RB"
	WR Position = "WR"
	TE Position = "TE"
)

// Positions lists the skill positions in display order.
var Positions = []Position{QB, RB, WR, TE}

// Valid reports whether p is one of the four skill positions.
func (p Position) Valid() bool {
	switch p {
	case QB, RB, WR, TE:
		return true
	default:
		return false
	}
}

// ParsePosition accepts feed values such as "qb", "RB1" or "WR 12" and
// returns the bare position. Digits and whitespace are ignored.
func ParsePosition(raw string) (Position, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	p := Position(b.String())
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPosition, raw)
	}
	return p, nil
}

// ScoringSystem selects which historical dataset feeds the baselines.
type ScoringSystem string

// Supported scoring systems.
const (
	PPR      ScoringSystem = "PPR"
	HalfPPR  ScoringSystem = "HALF_PPR"
	Standard ScoringSystem = "STANDARD"
)

// SeasonWeeks is the number of regular-season weeks.
const SeasonWeeks = 18

// ScoringSystems lists the supported scoring systems.
var ScoringSystems = []ScoringSystem{PPR, HalfPPR, Standard}

// ParseScoringSystem maps user input to a ScoringSystem.
// Accepts: ppr, half, half_ppr, half-ppr, standard, std (case-insensitive).
func ParseScoringSystem(raw string) (ScoringSystem, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ppr":
		return PPR, nil
	case "half", "half_ppr", "half-ppr", "halfppr":
		return HalfPPR, nil
	case "standard", "std", "non_ppr":
		return Standard, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScoring, raw)
	}
}

// PlayerSeason holds one player's sparse week -> points mapping for a season.
type PlayerSeason struct {
	Name     string          `json:"name"`
	Position Position        `json:"pos"`
	Weeks    map[int]float64 `json:"weeks"`
}

// Games returns the number of recorded weeks, zero-point weeks included.
func (p PlayerSeason) Games() int { return len(p.Weeks) }

// SortedWeeks returns the recorded week numbers in ascending order.
func (p PlayerSeason) SortedWeeks() []int {
	weeks := make([]int, 0, len(p.Weeks))
	for w := range p.Weeks {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	return weeks
}

// Total sums recorded points in ascending week order so repeated calls
// produce identical floating point results.
func (p PlayerSeason) Total() float64 {
	var sum float64
	for _, w := range p.SortedWeeks() {
		sum += p.Weeks[w]
	}
	return sum
}

// Average is the mean over all recorded weeks, or 0 with none recorded.
func (p PlayerSeason) Average() float64 {
	if len(p.Weeks) == 0 {
		return 0
	}
	return p.Total() / float64(len(p.Weeks))
}

// Season is an ordered player list. Order follows the source file and is
// used as the tie-break wherever players compare equal.
type Season []PlayerSeason

// MaxWeek returns the highest week with a recorded score, or 0.
func (s Season) MaxWeek() int {
	highest := 0
	for _, p := range s {
		for w := range p.Weeks {
			if w > highest {
				highest = w
			}
		}
	}
	return highest
}

// ByPosition returns the players at pos, preserving order.
func (s Season) ByPosition(pos Position) Season {
	out := make(Season, 0)
	for _, p := range s {
		if p.Position == pos {
			out = append(out, p)
		}
	}
	return out
}

// Archive holds historical seasons keyed by scoring system and year.
type Archive map[ScoringSystem]map[int]Season

// Put stores a season, allocating the inner map when needed.
func (a Archive) Put(scoring ScoringSystem, year int, season Season) {
	if a[scoring] == nil {
		a[scoring] = make(map[int]Season)
	}
	a[scoring][year] = season
}

// Years returns the stored years for scoring in ascending order.
func (a Archive) Years(scoring ScoringSystem) []int {
	years := make([]int, 0, len(a[scoring]))
	for y := range a[scoring] {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Latest returns the most recent season stored for scoring.
func (a Archive) Latest(scoring ScoringSystem) (int, Season, bool) {
	years := a.Years(scoring)
	if len(years) == 0 {
		return 0, nil, false
	}
	y := years[len(years)-1]
	return y, a[scoring][y], true
}
