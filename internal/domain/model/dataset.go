package model

// Dataset is everything loaded from the data folder: historical seasons per
// scoring system, the in-progress season and the weekly ECR tables.
type Dataset struct {
	Historical Archive
	Current    map[ScoringSystem]Season
	Weekly     WeeklyECR
}

// NewDataset returns an empty, writable Dataset.
func NewDataset() *Dataset {
	return &Dataset{
		Historical: Archive{},
		Current:    make(map[ScoringSystem]Season),
		Weekly:     WeeklyECR{},
	}
}

// CurrentFor returns the in-progress season for scoring. Feeds usually only
// publish the PPR file mid-season, so a missing system falls back to PPR.
func (d *Dataset) CurrentFor(scoring ScoringSystem) Season {
	if d == nil {
		return nil
	}
	if s, ok := d.Current[scoring]; ok {
		return s
	}
	return d.Current[PPR]
}

// CurrentWeek is the latest week with a recorded score for scoring.
func (d *Dataset) CurrentWeek(scoring ScoringSystem) int {
	return d.CurrentFor(scoring).MaxWeek()
}

// HasData reports whether anything at all is loaded for scoring.
func (d *Dataset) HasData(scoring ScoringSystem) bool {
	if d == nil {
		return false
	}
	return len(d.CurrentFor(scoring)) > 0 || len(d.Historical[scoring]) > 0
}

// WithWeek returns a copy of d whose table for week takes entries. Only the
// positions present in entries are replaced; the week's other positions are
// kept, so per-position tables can arrive one at a time. The receiver is not
// modified.
func (d *Dataset) WithWeek(week int, entries []ECREntry) *Dataset {
	cp := *d
	cp.Weekly = d.Weekly.Clone()
	cp.Weekly[week] = MergeByPosition(d.Weekly[week], entries)
	return &cp
}

// MergeByPosition returns base with every position that appears in update
// replaced by update's rows for it.
func MergeByPosition(base, update []ECREntry) []ECREntry {
	replaced := make(map[Position]bool, len(Positions))
	for _, e := range update {
		replaced[e.Position] = true
	}
	out := make([]ECREntry, 0, len(base)+len(update))
	for _, e := range base {
		if !replaced[e.Position] {
			out = append(out, e)
		}
	}
	return append(out, update...)
}
