package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrInvalidUpload = errors.New("invalid ecr upload")
	ErrNoResolver    = errors.New("no roster platform configured")
)
