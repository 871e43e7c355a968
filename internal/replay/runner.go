// Package replay drives a running inkcheck server with synthetic writing
// sessions and checks that each behavior profile is scored into its band.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/okian/inkcheck/pkg/logger"
)

// Defaults applied by Run to zero Config fields.
const (
	DefaultBaseURL  = "http://localhost:9080"
	DefaultSessions = 100
	DefaultTopN     = 20
	DefaultTimeout  = 30 * time.Second

	directoryPermission = 0o750
)

func (c *Config) withDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Sessions < 1 {
		c.Sessions = DefaultSessions
	}
	if c.TopN < 1 {
		c.TopN = DefaultTopN
	}
	if c.Workers < 1 {
		c.Workers = runtime.NumCPU() * 2
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
	}
}

// Run executes a complete replay. The summary is returned even when the
// run fails on mismatched reports.
func Run(ctx context.Context, cfg Config) (*Summary, error) {
	cfg.withDefaults()
	selected, err := Lookup(cfg.Profiles)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, ErrNoProfiles
	}

	summary := &Summary{StartTime: time.Now()}
	log := logger.Get()
	log.Info(ctx, "starting replay",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Any("seed", cfg.Seed))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	if err := checkServiceHealth(ctx, client); err != nil {
		return nil, err
	}

	items, err := generateAll(ctx, &cfg, selected)
	if err != nil {
		return nil, err
	}
	summary.Generated = len(items)

	if cfg.OutputFile != "" {
		if err := saveSubmissions(cfg.OutputFile, items); err != nil {
			log.Warn(ctx, "failed to save submissions", logger.Error(err))
		}
	}

	results := submitAll(ctx, &cfg, client, items)
	summarize(ctx, &cfg, selected, results, summary)

	entries, err := fetchTriage(ctx, client, cfg.TopN)
	if err != nil {
		log.Warn(ctx, "failed to fetch triage", logger.Error(err))
	} else {
		summary.TriageEntries = len(entries)
		summary.TriageSorted = sortedByRisk(entries)
	}

	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)
	displayFinalStats(ctx, summary)

	if summary.Mismatched > 0 {
		return summary, fmt.Errorf("%w: %d of %d", ErrExpectations, summary.Mismatched, summary.Scored)
	}
	return summary, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	status, _, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}
	return nil
}

// saveSubmissions writes the generated sessions as a JSON array.
func saveSubmissions(filename string, items []Generated) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(filename) //nolint:gosec // operator supplied path
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write submissions: %w", err)
	}
	return f.Close()
}
