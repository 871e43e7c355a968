package trace

// Default safety ceilings.
const (
	DefaultMaxEvents    = 200_000
	DefaultMaxTextChars = 1_000_000
)

// Limits bounds the size of an accepted trace.
type Limits struct {
	// MaxEvents caps len(events).
	MaxEvents int `koanf:"max_events" yaml:"max_events" json:"max_events" validate:"gt=0"`
	// MaxTextChars caps the final text length in characters (runes).
	MaxTextChars int `koanf:"max_text_chars" yaml:"max_text_chars" json:"max_text_chars" validate:"gt=0"`
}

// DefaultLimits returns the committed default ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxEvents:    DefaultMaxEvents,
		MaxTextChars: DefaultMaxTextChars,
	}
}
