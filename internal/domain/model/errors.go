package model

import "errors"

// Sentinel kinds for model parsing errors.
var (
	ErrUnknownPosition = errors.New("unknown position")
	ErrUnknownScoring  = errors.New("unknown scoring system")
)
