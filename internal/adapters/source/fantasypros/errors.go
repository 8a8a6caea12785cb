package fantasypros

import "errors"

// Sentinel kinds for feed parsing and loading errors.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrDataDir       = errors.New("data directory unreadable")
	ErrNoWeek        = errors.New("no week number in file name")
)
