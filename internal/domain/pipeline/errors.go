package pipeline

import "errors"

// ErrInvalidSettings is returned when a settings snapshot cannot be built.
var ErrInvalidSettings = errors.New("invalid pipeline settings")
