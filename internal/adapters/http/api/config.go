// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/inkcheck/internal/domain/features"
	"github.com/okian/inkcheck/internal/domain/scoring"
	"github.com/okian/inkcheck/internal/domain/trace"
)

// ConfigDependencies exposes the settings snapshot in force.
type ConfigDependencies interface {
	Settings() *Settings
}

// effectiveConfig is the auditable view of the settings snapshot.
type effectiveConfig struct {
	Trace    trace.Limits    `json:"trace"`
	Features features.Config `json:"features"`
	Scoring  scoring.Config  `json:"scoring"`
	Rules    []ruleView      `json:"rules"`
}

type ruleView struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
	Weight int    `json:"weight"`
}

// ConfigHandler serves the effective scoring configuration.
type ConfigHandler struct {
	deps ConfigDependencies
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(deps ConfigDependencies) *ConfigHandler {
	return &ConfigHandler{deps: deps}
}

// HandleGetConfig handles GET /config requests.
func (h *ConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_config"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	s := h.deps.Settings()
	if s == nil {
		writeFailure(w, NewKind(op, ErrUnavailable))
		return
	}
	sc := s.Scoring()
	rules := scoring.Rules()
	views := make([]ruleView, len(rules))
	for i, rule := range rules {
		views[i] = ruleView{ID: string(rule.ID), Reason: rule.Reason, Weight: sc.Weights[string(rule.ID)]}
	}
	writeJSON(w, http.StatusOK, effectiveConfig{
		Trace:    s.Limits(),
		Features: s.Features(),
		Scoring:  sc,
		Rules:    views,
	})
}
