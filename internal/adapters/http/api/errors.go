package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/gridcast/internal/adapters/sleeper"
	service "github.com/okian/gridcast/internal/app"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/roster"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrBackpressure = errors.New("backpressure")
	ErrUpstream     = errors.New("upstream failure")
	ErrInternal     = errors.New("internal error")
)

// Error carries the operation that failed and the kind used to pick the
// response status.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil && !errors.Is(e.Err, e.Kind):
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of kind for op without a cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind wraps err as kind for op.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap wraps err for op, classifying it from the errors the service layer
// and its adapters return.
func Wrap(op string, err error) error {
	return &Error{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidUpload),
		errors.Is(err, model.ErrUnknownPosition),
		errors.Is(err, model.ErrUnknownScoring),
		errors.Is(err, roster.ErrUnknownFilter),
		errors.Is(err, sleeper.ErrBadInput):
		return ErrBadRequest
	case errors.Is(err, ErrNotFound),
		errors.Is(err, sleeper.ErrNotFound),
		errors.Is(err, sleeper.ErrNotInLeague),
		errors.Is(err, service.ErrNoResolver):
		return ErrNotFound
	case errors.Is(err, ErrBackpressure):
		return ErrBackpressure
	case errors.Is(err, ErrUpstream), errors.Is(err, sleeper.ErrUpstream):
		return ErrUpstream
	default:
		return ErrInternal
	}
}

// statusFor maps an error to its HTTP status and response code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
