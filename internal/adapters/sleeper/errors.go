package sleeper

import "errors"

// Sentinel kinds for Sleeper client errors.
var (
	ErrNotFound    = errors.New("sleeper: not found")
	ErrUpstream    = errors.New("sleeper: upstream error")
	ErrNotInLeague = errors.New("sleeper: user has no roster in league")
	ErrBadInput    = errors.New("sleeper: invalid input")
)
