package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	// ErrStale tells the worker a request was overtaken by newer data and
	// should be dropped without counting as a failure.
	ErrStale = errors.New("stale recompute request")
)
