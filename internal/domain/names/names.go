// Package names canonicalizes player names so independently formatted feeds
// can be joined on an exact key.
package names

import (
	"regexp"
	"strings"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9\s]+`)
	spaces   = regexp.MustCompile(`\s+`)
	suffix   = regexp.MustCompile(`\s(jr|sr|ii|iii|iv|v)$`)
)

// Normalize lower-cases name, drops punctuation, collapses whitespace and
// strips generational suffixes (jr, sr, ii, iii, iv, v) from the end.
// Suffixes are stripped until none remain, so Normalize(Normalize(s)) equals
// Normalize(s) for every input.
func Normalize(name string) string {
	s := strings.ToLower(name)
	s = nonAlnum.ReplaceAllString(s, "")
	s = strings.TrimSpace(spaces.ReplaceAllString(s, " "))
	for {
		trimmed := suffix.ReplaceAllString(s, "")
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

// Normalizer produces the join key for a player name.
type Normalizer interface {
	Normalize(name string) string
}

// Func adapts a plain function to Normalizer.
type Func func(name string) string

// Normalize calls f.
func (f Func) Normalize(name string) string { return f(name) }

// Default is the exact-match normalizer used across the engine.
var Default Normalizer = Func(Normalize)

// Index is a lookup keyed by normalized name. When two items normalize to
// the same key the first one added wins.
type Index[T any] struct {
	norm  Normalizer
	items map[string]T
}

// NewIndex builds an Index over items using key to extract each item's name.
// A nil normalizer falls back to Default.
func NewIndex[T any](norm Normalizer, items []T, key func(T) string) *Index[T] {
	if norm == nil {
		norm = Default
	}
	ix := &Index[T]{norm: norm, items: make(map[string]T, len(items))}
	for _, it := range items {
		k := norm.Normalize(key(it))
		if _, exists := ix.items[k]; exists {
			continue
		}
		ix.items[k] = it
	}
	return ix
}

// Lookup returns the item whose normalized name equals name's.
func (ix *Index[T]) Lookup(name string) (T, bool) {
	v, ok := ix.items[ix.norm.Normalize(name)]
	return v, ok
}

// Len returns the number of distinct keys.
func (ix *Index[T]) Len() int { return len(ix.items) }

// Set is a membership test over normalized names.
type Set struct {
	norm Normalizer
	keys map[string]struct{}
}

// NewSet builds a Set from raw names. A nil normalizer falls back to Default.
func NewSet(norm Normalizer, raw []string) *Set {
	if norm == nil {
		norm = Default
	}
	s := &Set{norm: norm, keys: make(map[string]struct{}, len(raw))}
	for _, n := range raw {
		if k := norm.Normalize(n); k != "" {
			s.keys[k] = struct{}{}
		}
	}
	return s
}

// Contains reports whether name normalizes to a member. Safe on a nil Set.
func (s *Set) Contains(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.keys[s.norm.Normalize(name)]
	return ok
}

// Len returns the number of members. Safe on a nil Set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}
