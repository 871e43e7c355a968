package replay

import (
	"errors"
	"time"
)

// Errors returned by Run.
var (
	ErrUnhealthy    = errors.New("service health check failed")
	ErrNoProfiles   = errors.New("no profiles selected")
	ErrUnknown      = errors.New("unknown profile")
	ErrExpectations = errors.New("reports outside their expected band")
)

// Config holds configuration for a replay run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Sessions   int           // Sessions generated per profile
	Profiles   []string      // Profile names; empty means all
	TopN       int           // Triage entries fetched after submission
	Workers    int           // Concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Seed       uint64        // Generator seed; 0 picks one from the clock
	OutputFile string        // Optional file receiving the generated submissions
	Verbose    bool          // Log every mismatch
}

// Submission is the wire shape posted to /submit.
type Submission struct {
	SessionID       string  `json:"session_id"`
	Text            string  `json:"text"`
	TotalChars      int64   `json:"total_chars"`
	TotalWords      int64   `json:"total_words"`
	StartTime       int64   `json:"startTime"`
	EndTime         int64   `json:"endTime"`
	DurationSeconds int64   `json:"duration_seconds"`
	Events          []Event `json:"events"`
}

// Event is one trace event on the wire. Only the fields of its type are set.
type Event struct {
	Type        string `json:"type"`
	Time        int64  `json:"time"`
	Key         string `json:"key,omitempty"`
	Length      *int64 `json:"length,omitempty"`
	Words       *int64 `json:"words,omitempty"`
	Delta       *int64 `json:"delta,omitempty"`
	TotalLength *int64 `json:"totalLength,omitempty"`
}

// Generated pairs a submission with the profile that produced it.
type Generated struct {
	Profile    string     `json:"profile"`
	Submission Submission `json:"submission"`
}

// Result is the outcome of one submission.
type Result struct {
	Profile   string
	SessionID string
	Status    int
	Risk      int
	Severity  string
	Err       error
}

// ProfileStats aggregates the results of one profile.
type ProfileStats struct {
	Submitted  int
	Scored     int
	Failed     int
	Mismatched int
	MinRisk    int
	MaxRisk    int
	MeanRisk   float64
}

// Summary holds run statistics.
type Summary struct {
	Generated     int
	Submitted     int
	Scored        int
	Failed        int
	Mismatched    int
	Profiles      map[string]*ProfileStats
	TriageEntries int
	TriageSorted  bool
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
