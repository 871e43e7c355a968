package scoring

import (
	"fmt"
	"sort"

	"github.com/okian/inkcheck/internal/domain/model"
)

// Default score clamp bounds.
const (
	DefaultMinScore = 0
	DefaultMaxScore = 100
)

// Thresholds are the rule trigger knobs.
type Thresholds struct {
	PasteRatio               float64 `koanf:"paste_ratio_threshold" yaml:"paste_ratio_threshold" json:"paste_ratio_threshold" validate:"gte=0,lte=1"`
	GiantPasteChars          int64   `koanf:"giant_paste_chars" yaml:"giant_paste_chars" json:"giant_paste_chars" validate:"gte=0"`
	SuddenInsertCount        int64   `koanf:"sudden_insert_count" yaml:"sudden_insert_count" json:"sudden_insert_count" validate:"gte=1"`
	GiantInsertChars         int64   `koanf:"giant_insert_chars" yaml:"giant_insert_chars" json:"giant_insert_chars" validate:"gte=0"`
	CadenceVarianceEpsilon   float64 `koanf:"cadence_variance_epsilon" yaml:"cadence_variance_epsilon" json:"cadence_variance_epsilon" validate:"gte=0"`
	CadenceMinKeyEvents      int64   `koanf:"cadence_min_key_events" yaml:"cadence_min_key_events" json:"cadence_min_key_events" validate:"gte=0"`
	ThroughputCharsPerMinute float64 `koanf:"throughput_chars_per_minute" yaml:"throughput_chars_per_minute" json:"throughput_chars_per_minute" validate:"gt=0"`
	PasteNoPauseRatio        float64 `koanf:"paste_no_pause_ratio" yaml:"paste_no_pause_ratio" json:"paste_no_pause_ratio" validate:"gte=0,lte=1"`
	ShortSessionSeconds      int64   `koanf:"short_session_seconds" yaml:"short_session_seconds" json:"short_session_seconds" validate:"gte=0"`
	ShortSessionMinWords     int64   `koanf:"short_session_min_words" yaml:"short_session_min_words" json:"short_session_min_words" validate:"gte=0"`
	LowTypedMinChars         int64   `koanf:"low_typed_min_chars" yaml:"low_typed_min_chars" json:"low_typed_min_chars" validate:"gte=0"`
	LowTypedRatio            float64 `koanf:"low_typed_ratio" yaml:"low_typed_ratio" json:"low_typed_ratio" validate:"gte=0,lte=1"`
	InsufficientMinKeyGaps   int64   `koanf:"insufficient_min_key_gaps" yaml:"insufficient_min_key_gaps" json:"insufficient_min_key_gaps" validate:"gte=0"`
}

// Config is the full scorer configuration. Weights are keyed by rule id;
// a rule missing from the map uses its default weight.
type Config struct {
	Thresholds Thresholds     `koanf:"thresholds" yaml:"thresholds" json:"thresholds"`
	Weights    map[string]int `koanf:"weights" yaml:"weights" json:"weights"`
	MinScore   int            `koanf:"min_score" yaml:"min_score" json:"min_score" validate:"gte=0,lte=100"`
	MaxScore   int            `koanf:"max_score" yaml:"max_score" json:"max_score" validate:"gtefield=MinScore,lte=100"`
}

// DefaultThresholds returns the committed trigger defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PasteRatio:               0.4,
		GiantPasteChars:          300,
		SuddenInsertCount:        2,
		GiantInsertChars:         500,
		CadenceVarianceEpsilon:   100,
		CadenceMinKeyEvents:      50,
		ThroughputCharsPerMinute: 720,
		PasteNoPauseRatio:        0.3,
		ShortSessionSeconds:      600,
		ShortSessionMinWords:     250,
		LowTypedMinChars:         200,
		LowTypedRatio:            0.3,
		InsufficientMinKeyGaps:   10,
	}
}

// DefaultWeights returns the committed per-rule weights.
func DefaultWeights() map[string]int {
	out := make(map[string]int, len(rules))
	for _, r := range rules {
		out[string(r.ID)] = r.DefaultWeight
	}
	return out
}

// DefaultConfig returns the scorer defaults.
func DefaultConfig() Config {
	return Config{
		Thresholds: DefaultThresholds(),
		Weights:    DefaultWeights(),
		MinScore:   DefaultMinScore,
		MaxScore:   DefaultMaxScore,
	}
}

// Validate checks the invariants struct tags cannot express.
func (c Config) Validate() error {
	if c.MinScore < 0 {
		return fmt.Errorf("%w: min_score must be >= 0, got %d", ErrInvalidConfig, c.MinScore)
	}
	if c.MaxScore > DefaultMaxScore {
		return fmt.Errorf("%w: max_score must be <= %d, got %d", ErrInvalidConfig, DefaultMaxScore, c.MaxScore)
	}
	if c.MaxScore < c.MinScore {
		return fmt.Errorf("%w: max_score %d is below min_score %d", ErrInvalidConfig, c.MaxScore, c.MinScore)
	}
	ids := make([]string, 0, len(c.Weights))
	for id := range c.Weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, ok := ruleByID(model.RuleID(id)); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownRule, id)
		}
		if w := c.Weights[id]; w < 0 {
			return fmt.Errorf("%w: weight for %q must be >= 0, got %d", ErrInvalidConfig, id, w)
		}
	}
	return nil
}

// weight returns the configured weight for id, falling back to the default.
func (c Config) weight(r Rule) int {
	if w, ok := c.Weights[string(r.ID)]; ok {
		return w
	}
	return r.DefaultWeight
}
