package model

const millisPerSecond = 1000

// Session is one composition session built from a single submission.
type Session struct {
	SessionID string
	// StartTime and EndTime are epoch milliseconds, EndTime >= StartTime.
	StartTime  int64
	EndTime    int64
	FinalText  string
	TotalChars int64
	TotalWords int64
	// DeclaredDurationSeconds is the producer's own duration figure. Features
	// use Duration, which is derived from StartTime and EndTime.
	DeclaredDurationSeconds int64
	Events                  []Event
}

// Duration returns the session length in whole seconds, floored and never
// negative.
func (s *Session) Duration() int64 {
	d := s.EndTime - s.StartTime
	if d <= 0 {
		return 0
	}
	return d / millisPerSecond
}
