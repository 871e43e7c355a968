// Package repository keeps the latest report of recently scored sessions,
// ranked for reviewer triage.
package repository

import (
	"context"
	"time"

	"github.com/okian/inkcheck/internal/domain/model"
)

// Entry is one triage board row.
type Entry struct {
	Rank      int       `json:"rank"`
	UpdatedAt time.Time `json:"updated_at"`
	model.Report
}

// Board provides read/write access to the triage state. Nothing read from a
// Board ever feeds back into scoring.
type Board interface {
	// Upsert replaces the report held for its session.
	Upsert(ctx context.Context, report model.Report) error

	// Get returns the latest report and rank of a session, or ErrNotFound.
	Get(ctx context.Context, sessionID string) (Entry, error)

	// Top returns up to n entries ordered by risk desc, session id asc.
	Top(ctx context.Context, n int) ([]Entry, error)

	// Len returns the number of sessions on the board.
	Len(ctx context.Context) int
}
