package scoring

import "errors"

var (
	// ErrInvalidConfig is returned for out-of-range scorer settings.
	ErrInvalidConfig = errors.New("invalid scoring config")
	// ErrUnknownRule is returned when a weight names a rule that does not exist.
	ErrUnknownRule = errors.New("unknown scoring rule")
)
