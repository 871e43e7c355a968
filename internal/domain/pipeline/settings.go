package pipeline

import (
	"fmt"

	"github.com/okian/inkcheck/internal/domain/features"
	"github.com/okian/inkcheck/internal/domain/scoring"
	"github.com/okian/inkcheck/internal/domain/trace"
)

// Settings is an immutable snapshot of everything an evaluation reads.
// Build it with NewSettings and never mutate it afterwards; swap in a new
// snapshot instead.
type Settings struct {
	limits   trace.Limits
	features features.Config
	scorer   *scoring.Scorer
}

// NewSettings validates the parts and binds them into a snapshot.
func NewSettings(limits trace.Limits, fc features.Config, sc scoring.Config) (*Settings, error) {
	if limits.MaxEvents <= 0 || limits.MaxTextChars <= 0 {
		return nil, fmt.Errorf("%w: trace limits must be positive", ErrInvalidSettings)
	}
	if err := fc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	scorer, err := scoring.NewScorer(sc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return &Settings{limits: limits, features: fc, scorer: scorer}, nil
}

// DefaultSettings returns a snapshot built from every package default.
func DefaultSettings() *Settings {
	s, err := NewSettings(trace.DefaultLimits(), features.DefaultConfig(), scoring.DefaultConfig())
	if err != nil {
		panic("pipeline: default settings are invalid: " + err.Error())
	}
	return s
}

// Limits returns the trace size ceilings.
func (s *Settings) Limits() trace.Limits { return s.limits }

// Features returns the extractor configuration.
func (s *Settings) Features() features.Config { return s.features }

// Scoring returns the effective scorer configuration.
func (s *Settings) Scoring() scoring.Config { return s.scorer.Config() }
