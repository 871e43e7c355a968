package trace

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for rejected submissions. These allow errors.Is from
// callers; details travel in *Error.
var (
	ErrMalformedPayload    = errors.New("malformed payload")
	ErrTimestampRegression = errors.New("timestamp regression")
	ErrOversizeTrace       = errors.New("oversize trace")
)

// Error describes why a submission was rejected.
type Error struct {
	// Kind is one of the package sentinels.
	Kind error
	// Field locates the offending value, e.g. "events[3].time". Empty when
	// the whole payload is at fault.
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", e.Kind, e.Field, e.Reason)
}

func (e *Error) Unwrap() error { return e.Kind }

func malformed(field, reason string) *Error {
	return &Error{Kind: ErrMalformedPayload, Field: field, Reason: reason}
}

// Stable machine-readable codes for the rejection kinds.
const (
	CodeMalformedPayload    = "malformed_payload"
	CodeTimestampRegression = "timestamp_regression"
	CodeOversizeTrace       = "oversize_trace"
)

// Code maps a rejection to its code, or "" when err is not a rejection.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrMalformedPayload):
		return CodeMalformedPayload
	case errors.Is(err, ErrTimestampRegression):
		return CodeTimestampRegression
	case errors.Is(err, ErrOversizeTrace):
		return CodeOversizeTrace
	default:
		return ""
	}
}
