package features

import (
	"fmt"

	"github.com/okian/inkcheck/internal/domain/model"
)

// DefaultLongPauseMillis is the gap above which a keystroke counts as
// following a long pause (five minutes).
const DefaultLongPauseMillis = 300_000

// Config holds the extractor thresholds.
type Config struct {
	// SuddenInsertChars is the edit growth above which an edit is classified
	// as a sudden insert.
	SuddenInsertChars int64 `koanf:"sudden_insert_chars" yaml:"sudden_insert_chars" json:"sudden_insert_chars" validate:"gte=0"`
	// LongPauseMillis is the inter-key gap above which a pause is long.
	LongPauseMillis int64 `koanf:"long_pause_millis" yaml:"long_pause_millis" json:"long_pause_millis" validate:"gt=0"`
}

// DefaultConfig returns the extractor defaults.
func DefaultConfig() Config {
	return Config{
		SuddenInsertChars: model.DefaultSuddenInsertChars,
		LongPauseMillis:   DefaultLongPauseMillis,
	}
}

// Validate reports whether the thresholds are usable.
func (c Config) Validate() error {
	if c.SuddenInsertChars < 0 {
		return fmt.Errorf("%w: sudden_insert_chars must be >= 0, got %d", ErrInvalidConfig, c.SuddenInsertChars)
	}
	if c.LongPauseMillis <= 0 {
		return fmt.Errorf("%w: long_pause_millis must be > 0, got %d", ErrInvalidConfig, c.LongPauseMillis)
	}
	return nil
}
