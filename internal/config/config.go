// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New() returns a Config populated with defaults.
//   - Load layers defaults, an optional .env file, an optional YAML file and
//     INKCHECK_* environment variables, then validates the result.
//   - External errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"runtime"

	"github.com/go-playground/validator/v10"

	"github.com/okian/inkcheck/internal/domain/features"
	"github.com/okian/inkcheck/internal/domain/pipeline"
	"github.com/okian/inkcheck/internal/domain/scoring"
	"github.com/okian/inkcheck/internal/domain/trace"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" yaml:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" yaml:"addr" validate:"required"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size" yaml:"queue_size" validate:"gt=0"`

	// WorkerCount sets the number of evaluation workers.
	WorkerCount int `koanf:"worker_count" yaml:"worker_count" validate:"gt=0"`

	// BoardSize caps the number of sessions kept on the triage board.
	BoardSize int `koanf:"board_size" yaml:"board_size" validate:"gt=0"`

	// MaxTriageLimit caps GET /triage?limit.
	MaxTriageLimit int `koanf:"max_triage_limit" yaml:"max_triage_limit" validate:"gt=0"`

	// MaxBodyBytes caps request bodies on submission routes.
	MaxBodyBytes int64 `koanf:"max_body_bytes" yaml:"max_body_bytes" validate:"gt=0"`

	// MaxBatchSize caps the number of submissions in one batch request.
	MaxBatchSize int `koanf:"max_batch_size" yaml:"max_batch_size" validate:"gt=0"`

	// RateLimitRPS and RateLimitBurst shape submission traffic; zero RPS
	// disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps" yaml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `koanf:"rate_limit_burst" yaml:"rate_limit_burst" validate:"gte=0"`

	// SubmitTimeoutMS bounds how long a submission waits for its result.
	SubmitTimeoutMS int `koanf:"submit_timeout_ms" yaml:"submit_timeout_ms" validate:"gt=0"`

	// OTLPEndpoint enables trace export when set, e.g. "localhost:4317".
	OTLPEndpoint string `koanf:"otlp_endpoint" yaml:"otlp_endpoint"`

	Trace    trace.Limits    `koanf:"trace" yaml:"trace"`
	Features features.Config `koanf:"features" yaml:"features"`
	Scoring  scoring.Config  `koanf:"scoring" yaml:"scoring"`
}

// New creates a Config holding every default.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		QueueSize:       10_000,
		WorkerCount:     runtime.NumCPU() * 4,
		BoardSize:       10_000,
		MaxTriageLimit:  100,
		MaxBodyBytes:    16 << 20,
		MaxBatchSize:    100,
		RateLimitRPS:    0,
		RateLimitBurst:  50,
		SubmitTimeoutMS: 5_000,
		Trace:           trace.DefaultLimits(),
		Features:        features.DefaultConfig(),
		Scoring:         scoring.DefaultConfig(),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the domain invariants tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Features.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Settings binds the evaluation-relevant parts into an immutable snapshot.
func (c *Config) Settings() (*pipeline.Settings, error) {
	s, err := pipeline.NewSettings(c.Trace, c.Features, c.Scoring)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return s, nil
}
