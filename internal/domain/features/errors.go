package features

import "errors"

// ErrInvalidConfig is returned when extractor thresholds are out of range.
var ErrInvalidConfig = errors.New("invalid feature config")
