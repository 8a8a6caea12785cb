package roster

import "errors"

// Sentinel kinds for roster errors.
var (
	ErrUnknownFilter = errors.New("unknown roster filter")
)
