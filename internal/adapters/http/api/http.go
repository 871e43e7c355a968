// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	repository "github.com/okian/inkcheck/internal/adapters/repository"
	service "github.com/okian/inkcheck/internal/app"
	"github.com/okian/inkcheck/internal/domain/model"
	"github.com/okian/inkcheck/internal/domain/pipeline"
	"github.com/okian/inkcheck/internal/domain/trace"
	"github.com/okian/inkcheck/internal/domain/types"
)

const (
	defaultMaxTriageLimit = 100
	defaultMaxBodyBytes   = 16 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SubmitDependencies
	SessionDependencies
	TriageDependencies
	ConfigDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	submitHandler  *SubmitHandler
	sessionHandler *SessionHandler
	triageHandler  *TriageHandler
	configHandler  *ConfigHandler

	maxTriageLimit int
	maxBodyBytes   int64
	limiter        *rate.Limiter
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxTriageLimit caps GET /triage?limit.
func WithMaxTriageLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxTriageLimit = n
		}
	}
}

// WithMaxBodyBytes caps submission request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithRateLimit shapes submission traffic to rps requests per second with
// the given burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		maxTriageLimit: defaultMaxTriageLimit,
		maxBodyBytes:   defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.submitHandler = NewSubmitHandler(deps, s.maxBodyBytes)
	s.sessionHandler = NewSessionHandler(deps)
	s.triageHandler = NewTriageHandler(deps, s.maxTriageLimit)
	s.configHandler = NewConfigHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/submit", MetricsMiddleware(RateLimit(s.submitHandler.HandleSubmit, s.limiter, "submit"), "submit"))
	mux.HandleFunc("/submit/batch", MetricsMiddleware(RateLimit(s.submitHandler.HandleSubmitBatch, s.limiter, "submit_batch"), "submit_batch"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionHandler.HandleGetSession, "sessions"))
	mux.HandleFunc("/triage", MetricsMiddleware(s.triageHandler.HandleGetTriage, "triage"))
	mux.HandleFunc("/config", MetricsMiddleware(s.configHandler.HandleGetConfig, "config"))
}

// errorResponse is the body of every non-2xx answer.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, problem(status, code, err))
}

// writeFailure classifies err and writes the matching status and body.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func problem(status int, code string, err error) errorResponse {
	resp := errorResponse{Code: code, Message: http.StatusText(status)}
	if err == nil {
		return resp
	}
	var te *trace.Error
	if errors.As(err, &te) {
		resp.Message = te.Reason
		resp.Field = te.Field
		return resp
	}
	resp.Message = err.Error()
	return resp
}

// Machine-readable codes for failures outside the trace rejections.
const (
	codeBackpressure  = "backpressure"
	codeRateLimited   = "rate_limited"
	codeNotFound      = "not_found"
	codeBadRequest    = "bad_request"
	codeUnavailable   = "unavailable"
	codeInternal      = "internal_error"
	codeBatchTooLarge = "batch_too_large"
)

// classify maps an error to its HTTP status and code.
func classify(err error) (int, string) {
	if code := trace.Code(err); code != "" {
		switch code {
		case trace.CodeTimestampRegression:
			return http.StatusUnprocessableEntity, code
		case trace.CodeOversizeTrace:
			return http.StatusRequestEntityTooLarge, code
		default:
			return http.StatusBadRequest, code
		}
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, trace.CodeOversizeTrace
	case errors.Is(err, service.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge, codeBatchTooLarge
	case errors.Is(err, service.ErrBackpressure), errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, codeBackpressure
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, codeRateLimited
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, repository.ErrInvalidLimit), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, codeUnavailable
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// Read models re-exported for handler signatures.
type (
	Report        = model.Report
	SessionReport = types.SessionReport
	TriageEntry   = types.TriageEntry
	Settings      = pipeline.Settings
)
