package repository

import "errors"

// Sentinel kinds for triage board errors.
var (
	ErrNotFound       = errors.New("session not found")
	ErrInvalidLimit   = errors.New("invalid triage limit")
	ErrMissingSession = errors.New("report has no session id")
)
