// Package history summarizes what each positional finish has historically
// been worth per week.
package history

import (
	"sort"

	"github.com/okian/gridcast/internal/domain/model"
)

// DefaultDepth is the number of positional finishes reported.
const DefaultDepth = 24

// Row is one positional finish across the available years.
type Row struct {
	Rank    int             `json:"rank"`
	ByYear  map[int]float64 `json:"by_year"`
	Average float64         `json:"average"`
}

// Table holds the rows for one position.
type Table struct {
	Position model.Position `json:"pos"`
	Years    []int          `json:"years"`
	Rows     []Row          `json:"rows"`
}

// Build reads each year's players in source order, which for season-total
// exports is finish order, and reports the per-week average of the first
// depth players at every position. Players with no recorded weeks still
// occupy their finish but contribute no value. A non-positive depth uses
// DefaultDepth.
func Build(seasons map[int]model.Season, depth int) []Table {
	if depth <= 0 {
		depth = DefaultDepth
	}
	years := make([]int, 0, len(seasons))
	for y := range seasons {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]Table, 0, len(model.Positions))
	for _, pos := range model.Positions {
		byRank := make(map[int]map[int]float64)
		for _, y := range years {
			for idx, p := range seasons[y].ByPosition(pos) {
				rank := idx + 1
				if rank > depth {
					break
				}
				if p.Games() == 0 {
					continue
				}
				if byRank[rank] == nil {
					byRank[rank] = make(map[int]float64, len(years))
				}
				byRank[rank][y] = p.Average()
			}
		}

		rows := make([]Row, 0, len(byRank))
		for rank := 1; rank <= depth; rank++ {
			vals, ok := byRank[rank]
			if !ok {
				continue
			}
			var sum float64
			for _, y := range years {
				sum += vals[y]
			}
			rows = append(rows, Row{Rank: rank, ByYear: vals, Average: sum / float64(len(vals))})
		}
		out = append(out, Table{Position: pos, Years: years, Rows: rows})
	}
	return out
}
