// Package fantasypros reads FantasyPros weekly points and ECR exports.
package fantasypros

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/okian/gridcast/internal/domain/model"
)

// MaxWeek is the last regular-season week read from a points export.
const MaxWeek = model.SeasonWeeks

// Report counts what a parse kept and dropped.
type Report struct {
	Rows    int
	Kept    int
	Skipped int
}

// header maps trimmed column names to their index.
type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	cols, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return header{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(cols))
	for i, c := range cols {
		c = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
		if _, dup := h[c]; !dup {
			h[c] = i
		}
	}
	return h, nil
}

// get returns the first non-empty value among names.
func (h header) get(rec []string, names ...string) string {
	for _, n := range names {
		if i, ok := h[n]; ok && i < len(rec) {
			if v := strings.TrimSpace(rec[i]); v != "" {
				return v
			}
		}
	}
	return ""
}

func (h header) has(names ...string) bool {
	for _, n := range names {
		if _, ok := h[n]; ok {
			return true
		}
	}
	return false
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}

// ParsePoints reads a weekly points export. Rows need a player name and a
// skill position; week cells that are blank, "-", "BYE" or not numeric are
// left out so the player has no entry for that week.
func ParsePoints(r io.Reader) (model.Season, Report, error) {
	var rep Report
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, rep, err
	}
	if len(h) == 0 {
		return model.Season{}, rep, nil
	}
	if !h.has("Player") || !h.has("Pos") {
		return nil, rep, fmt.Errorf("%w: need Player and Pos", ErrMissingColumn)
	}

	season := model.Season{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, rep, fmt.Errorf("read row %d: %w", rep.Rows+1, err)
		}
		rep.Rows++

		name := h.get(rec, "Player")
		pos, perr := model.ParsePosition(h.get(rec, "Pos"))
		if name == "" || perr != nil {
			rep.Skipped++
			continue
		}
		weeks := make(map[int]float64)
		for w := 1; w <= MaxWeek; w++ {
			raw := h.get(rec, strconv.Itoa(w))
			if raw == "" || raw == "-" || strings.EqualFold(raw, "BYE") {
				continue
			}
			v, ok := parseFinite(raw)
			if !ok {
				continue
			}
			weeks[w] = v
		}
		season = append(season, model.PlayerSeason{Name: name, Position: pos, Weeks: weeks})
		rep.Kept++
	}
	return season, rep, nil
}

// ParseECR reads an expert consensus rankings export. The position column
// carries both the position and the positional rank ("WR12"); rows without a
// positive rank or with an unreadable deviation are dropped.
func ParseECR(r io.Reader) ([]model.ECREntry, Report, error) {
	var rep Report
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, rep, err
	}
	if len(h) == 0 {
		return []model.ECREntry{}, rep, nil
	}
	if !h.has("PLAYER NAME", "Player") || !h.has("POS", "Pos") {
		return nil, rep, fmt.Errorf("%w: need PLAYER NAME and POS", ErrMissingColumn)
	}

	out := []model.ECREntry{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, rep, fmt.Errorf("read row %d: %w", rep.Rows+1, err)
		}
		rep.Rows++

		e, ok := ecrRow(h, rec)
		if !ok {
			rep.Skipped++
			continue
		}
		out = append(out, e)
		rep.Kept++
	}
	return out, rep, nil
}

func ecrRow(h header, rec []string) (model.ECREntry, bool) {
	name := h.get(rec, "PLAYER NAME", "Player")
	rawPos := h.get(rec, "POS", "Pos")
	pos, err := model.ParsePosition(rawPos)
	if name == "" || err != nil {
		return model.ECREntry{}, false
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, rawPos)
	rank, err := strconv.ParseFloat(digits, 64)
	if err != nil || rank <= 0 {
		return model.ECREntry{}, false
	}
	var std float64
	if raw := h.get(rec, "STD.DEV"); raw != "" {
		var ok bool
		if std, ok = parseFinite(raw); !ok {
			return model.ECREntry{}, false
		}
	}
	return model.ECREntry{Name: name, Position: pos, Rank: rank, StdDev: std}, true
}

// parseFinite parses a number cell. NaN and infinities are unreadable.
func parseFinite(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
