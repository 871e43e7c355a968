package service

import "errors"

// Sentinel error kinds for the service boundary.
var (
	// ErrBackpressure means the submission queue is full; retry later.
	ErrBackpressure = errors.New("submission queue is full")
	// ErrNotStarted is returned by calls made before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrNilSettings rejects an empty settings swap.
	ErrNilSettings = errors.New("settings must not be nil")
	// ErrBatchTooLarge rejects a batch over the configured size.
	ErrBatchTooLarge = errors.New("batch too large")
)
