package api

import (
	"fmt"
	"sort"
	"strings"
)

// column is one sortable table column. Numeric columns sort descending by
// default and text columns ascending.
type column[T any] struct {
	num  func(T) float64
	text func(T) string
}

func numeric[T any](f func(T) float64) column[T] { return column[T]{num: f} }
func text[T any](f func(T) string) column[T]     { return column[T]{text: f} }

// sortRows orders rows in place by key. An empty key keeps the incoming
// order. dir is "asc" or "desc" and overrides the column default. Ties keep
// their incoming order.
func sortRows[T any](rows []T, cols map[string]column[T], key, dir string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return nil
	}
	col, ok := cols[key]
	if !ok {
		return fmt.Errorf("%w: unknown sort column %q", ErrBadRequest, key)
	}

	desc := col.num != nil
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "":
	case "asc":
		desc = false
	case "desc":
		desc = true
	default:
		return fmt.Errorf("%w: unknown sort direction %q", ErrBadRequest, dir)
	}

	less := func(i, j int) bool {
		if col.num != nil {
			return col.num(rows[i]) < col.num(rows[j])
		}
		return strings.ToLower(col.text(rows[i])) < strings.ToLower(col.text(rows[j]))
	}
	if desc {
		sort.SliceStable(rows, func(i, j int) bool { return less(j, i) })
		return nil
	}
	sort.SliceStable(rows, less)
	return nil
}
