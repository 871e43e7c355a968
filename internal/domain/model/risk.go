package model

// RuleID identifies a scoring rule.
type RuleID string

// Severity is a coarse band derived from a risk value.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityElevated Severity = "elevated"
	SeverityHigh     Severity = "high"
)

// RiskScore is the scorer output. Reasons and Rules are parallel slices in
// rule declaration order.
type RiskScore struct {
	Value   int
	Reasons []string
	Rules   []RuleID
}

// Report is the response assembled for one session.
type Report struct {
	SessionID string             `json:"session_id"`
	Risk      int                `json:"risk"`
	Severity  Severity           `json:"severity"`
	Reasons   []string           `json:"reasons"`
	Rules     []RuleID           `json:"rules"`
	Features  map[string]float64 `json:"features"`
}
