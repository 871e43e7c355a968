package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/inkcheck/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request and returns the status and body.
func (c *HTTPClient) Get(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (int, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) (int, []byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

type reportBody struct {
	SessionID string `json:"session_id"`
	Risk      int    `json:"risk"`
	Severity  string `json:"severity"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// submitAll posts every submission with cfg.Workers concurrent workers.
// Results keep the order of items.
func submitAll(ctx context.Context, cfg *Config, client *HTTPClient, items []Generated) []Result {
	log := logger.Get()
	log.Info(ctx, "submitting sessions", logger.Int("count", len(items)), logger.Int("workers", cfg.Workers))

	results := make([]Result, len(items))
	var (
		done   atomic.Int64
		failed atomic.Int64
	)

	indices := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				res := submitOne(ctx, client, items[i])
				results[i] = res
				if res.Err != nil {
					failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "submission failed",
							logger.String("sessionID", res.SessionID),
							logger.Int("status", res.Status),
							logger.Error(res.Err))
					}
				}
				if n := done.Add(1); n%1000 == 0 {
					log.Info(ctx, "progress", logger.Int64("submitted", n), logger.Int64("failed", failed.Load()))
				}
			}
		}()
	}

	go func() {
		defer close(indices)
		for i := range items {
			select {
			case <-ctx.Done():
				return
			case indices <- i:
			}
		}
	}()

	wg.Wait()

	// Items never handed out because ctx ended.
	for i := range results {
		if results[i].Profile == "" {
			results[i] = Result{Profile: items[i].Profile, SessionID: items[i].Submission.SessionID, Err: ctx.Err()}
		}
	}
	return results
}

func submitOne(ctx context.Context, client *HTTPClient, item Generated) Result {
	res := Result{Profile: item.Profile, SessionID: item.Submission.SessionID}
	status, body, err := client.Post(ctx, "/submit", item.Submission)
	res.Status = status
	if err != nil {
		res.Err = err
		return res
	}
	if status != http.StatusOK {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		res.Err = fmt.Errorf("HTTP %d: %s: %s", status, eb.Code, eb.Message)
		return res
	}
	var rb reportBody
	if err := json.Unmarshal(body, &rb); err != nil {
		res.Err = fmt.Errorf("failed to parse report: %w", err)
		return res
	}
	res.Risk = rb.Risk
	res.Severity = rb.Severity
	return res
}

type triageEntry struct {
	Rank      int    `json:"rank"`
	SessionID string `json:"session_id"`
	Risk      int    `json:"risk"`
}

// fetchTriage retrieves the top n triage entries.
func fetchTriage(ctx context.Context, client *HTTPClient, n int) ([]triageEntry, error) {
	status, body, err := client.Get(ctx, fmt.Sprintf("/triage?limit=%d", n))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", status, string(body))
	}
	var entries []triageEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return entries, nil
}
