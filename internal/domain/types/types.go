// Package types contains the read models the service hands to the API.
package types

import (
	"time"

	"github.com/okian/inkcheck/internal/domain/model"
)

// TriageEntry is one row of the triage listing. It carries the verdict but
// not the feature breakdown; fetch the session for that.
type TriageEntry struct {
	Rank      int            `json:"rank"`
	SessionID string         `json:"session_id"`
	Risk      int            `json:"risk"`
	Severity  model.Severity `json:"severity"`
	Reasons   []string       `json:"reasons"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SessionReport is the latest report of a session with its triage rank.
type SessionReport struct {
	Rank      int       `json:"rank"`
	UpdatedAt time.Time `json:"updated_at"`
	model.Report
}

// Summarize drops the feature breakdown from a ranked report.
func Summarize(r SessionReport) TriageEntry { //nolint:gocritic // hugeParam: value in, value out
	return TriageEntry{
		Rank:      r.Rank,
		SessionID: r.SessionID,
		Risk:      r.Risk,
		Severity:  r.Severity,
		Reasons:   r.Reasons,
		UpdatedAt: r.UpdatedAt,
	}
}
