// Package scoring maps a feature vector to a bounded risk score using an
// ordered list of additive rules.
package scoring

import (
	"fmt"

	"github.com/okian/inkcheck/internal/domain/model"
)

// Severity band upper bounds (exclusive).
const (
	lowBandCeiling      = 30
	elevatedBandCeiling = 60
)

// Scorer evaluates the rule set against feature vectors. It is immutable and
// safe for concurrent use.
type Scorer struct {
	cfg     Config
	weights []int
}

// NewScorer validates cfg and returns a Scorer bound to a private copy of it.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new scorer: %w", err)
	}
	s := &Scorer{cfg: cfg, weights: make([]int, len(rules))}
	s.cfg.Weights = make(map[string]int, len(rules))
	for i, r := range rules {
		w := cfg.weight(r)
		s.weights[i] = w
		s.cfg.Weights[string(r.ID)] = w
	}
	return s, nil
}

// Config returns the effective configuration with every rule weight filled.
func (s *Scorer) Config() Config {
	out := s.cfg
	out.Weights = make(map[string]int, len(s.cfg.Weights))
	for k, v := range s.cfg.Weights {
		out.Weights[k] = v
	}
	return out
}

// Score never fails: every feature vector maps to some value in
// [MinScore, MaxScore].
func (s *Scorer) Score(fv model.FeatureVector) model.RiskScore {
	var (
		total int
		out   = model.RiskScore{Reasons: []string{}, Rules: []model.RuleID{}}
	)
	for i, r := range rules {
		if !r.Triggered(fv, s.cfg.Thresholds) {
			continue
		}
		total += max(s.weights[i], 0)
		out.Reasons = append(out.Reasons, r.Reason)
		out.Rules = append(out.Rules, r.ID)
	}
	out.Value = min(max(total, s.cfg.MinScore), s.cfg.MaxScore)
	return out
}

// SeverityOf buckets a risk value into a coarse band.
func SeverityOf(value int) model.Severity {
	switch {
	case value <= 0:
		return model.SeverityNone
	case value < lowBandCeiling:
		return model.SeverityLow
	case value < elevatedBandCeiling:
		return model.SeverityElevated
	default:
		return model.SeverityHigh
	}
}
