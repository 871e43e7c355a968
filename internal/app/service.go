// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/inkcheck/internal/adapters/mq/queue"
	workerpool "github.com/okian/inkcheck/internal/adapters/mq/worker"
	repository "github.com/okian/inkcheck/internal/adapters/repository"
	"github.com/okian/inkcheck/internal/domain/model"
	"github.com/okian/inkcheck/internal/domain/pipeline"
	"github.com/okian/inkcheck/internal/domain/trace"
	"github.com/okian/inkcheck/internal/domain/types"
	"github.com/okian/inkcheck/pkg/logger"
	"github.com/okian/inkcheck/pkg/metrics"
	"github.com/okian/inkcheck/pkg/tracing"
)

const (
	defaultQueueSize     = 10_000
	defaultBoardSize     = 10_000
	defaultMaxBatchSize  = 100
	defaultSubmitTimeout = 5 * time.Second
	stopTimeout          = 30 * time.Second
)

// Outcome is the per-item result of a batch submission.
type Outcome struct {
	Report model.Report
	Err    error
}

// Service evaluates submissions on a worker pool and keeps a triage board
// of the latest report per session.
type Service struct {
	mu sync.RWMutex

	// Core components
	board *repository.TreapBoard
	queue *eventqueue.InMemoryQueue
	pool  *workerpool.Pool

	settings        atomic.Pointer[pipeline.Settings]
	settingsVersion atomic.Int64

	// Configuration
	workerCount   int
	queueSize     int
	boardSize     int
	maxBatchSize  int
	submitTimeout time.Duration

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	submitted    atomic.Int64
	scored       atomic.Int64
	rejected     atomic.Int64
	backpressure atomic.Int64
	failed       atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued submissions.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithBoardSize bounds the triage board.
func WithBoardSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.boardSize = size
		}
	}
}

// WithMaxBatchSize caps SubmitBatch.
func WithMaxBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.maxBatchSize = size
		}
	}
}

// WithSubmitTimeout bounds how long Submit waits for a worker.
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.submitTimeout = d
		}
	}
}

// WithSettings sets the initial evaluation settings.
func WithSettings(settings *pipeline.Settings) Option {
	return func(s *Service) {
		if settings != nil {
			s.settings.Store(settings)
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU() * 4,
		queueSize:     defaultQueueSize,
		boardSize:     defaultBoardSize,
		maxBatchSize:  defaultMaxBatchSize,
		submitTimeout: defaultSubmitTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.settings.Load() == nil {
		s.settings.Store(pipeline.DefaultSettings())
	}
	s.settingsVersion.Store(1)
	return s
}

// Start initializes and starts the service components. Workers outlive ctx
// cancellation so queued submissions can drain in Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting inkcheck service...")

	s.board = repository.NewTreapBoard(repository.WithCapacity(s.boardSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue,
		workerpool.EvaluatorFunc(s.evaluate),
		workerpool.WithRecorder(s.board),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "inkcheck service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("boardSize", s.boardSize),
	)
	return nil
}

// Stop drains queued submissions and shuts the workers down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping inkcheck service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "inkcheck service stopped")
}

// evaluate runs on a worker with the settings snapshot current at dequeue
// time.
func (s *Service) evaluate(ctx context.Context, payload []byte) (model.Report, error) {
	settings := s.settings.Load()

	ctx, span := tracing.StartSpan(ctx, "inkcheck.evaluate", tracing.PayloadBytes(len(payload)))
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.RecordEvaluationLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	session, err := pipeline.Prepare(payload, settings)
	if err != nil {
		tracing.Fail(span, err)
		s.logger.Debug(ctx, "submission rejected", logger.Error(err))
		return model.Report{}, err
	}
	metrics.RecordTraceEvents(len(session.Events))

	report := pipeline.EvaluateSession(session, settings)
	rules := ruleNames(report.Rules)
	span.SetAttributes(
		tracing.SessionID(report.SessionID),
		tracing.Risk(report.Risk),
		tracing.Rules(rules),
	)
	metrics.RecordRisk(report.Risk, rules)
	return report, nil
}

// Submit queues raw for evaluation and waits for its report. A full queue
// fails fast with ErrBackpressure; rejections come back as *trace.Error.
func (s *Service) Submit(ctx context.Context, raw []byte) (model.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "inkcheck.submit", tracing.PayloadBytes(len(raw)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()

	reply, err := s.enqueue(ctx, raw)
	if err != nil {
		tracing.Fail(span, err)
		return model.Report{}, err
	}
	report, err := s.await(ctx, reply)
	if err != nil {
		tracing.Fail(span, err)
		return model.Report{}, err
	}
	span.SetAttributes(tracing.SessionID(report.SessionID), tracing.Risk(report.Risk))
	return report, nil
}

// SubmitBatch evaluates every item through the worker pool and returns the
// outcomes in input order. Items that do not fit in the queue fail with
// ErrBackpressure individually.
func (s *Service) SubmitBatch(ctx context.Context, raws [][]byte) ([]Outcome, error) {
	if len(raws) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: %d items exceeds the limit of %d", ErrBatchTooLarge, len(raws), s.maxBatchSize)
	}

	ctx, span := tracing.StartSpan(ctx, "inkcheck.submit_batch")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()

	out := make([]Outcome, len(raws))
	replies := make([]<-chan eventqueue.Result, len(raws))
	for i, raw := range raws {
		reply, err := s.enqueue(ctx, raw)
		if err != nil {
			if errors.Is(err, ErrNotStarted) {
				return nil, err
			}
			out[i].Err = err
			continue
		}
		replies[i] = reply
	}
	for i, reply := range replies {
		if reply == nil {
			continue
		}
		out[i].Report, out[i].Err = s.await(ctx, reply)
	}
	return out, nil
}

func (s *Service) enqueue(ctx context.Context, raw []byte) (<-chan eventqueue.Result, error) {
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	s.submitted.Add(1)
	reply := make(chan eventqueue.Result, 1)
	err := q.Enqueue(ctx, eventqueue.Job{ID: uuid.NewString(), Payload: raw, Reply: reply})
	switch {
	case err == nil:
		return reply, nil
	case errors.Is(err, eventqueue.ErrFull):
		s.backpressure.Add(1)
		metrics.RecordSubmission(metrics.OutcomeBackpressure)
		return nil, ErrBackpressure
	case errors.Is(err, eventqueue.ErrClosed):
		return nil, ErrNotStarted
	default:
		s.failed.Add(1)
		metrics.RecordSubmission(metrics.OutcomeFailed)
		return nil, err
	}
}

func (s *Service) await(ctx context.Context, reply <-chan eventqueue.Result) (model.Report, error) {
	select {
	case res := <-reply:
		s.record(res.Err)
		return res.Report, res.Err
	case <-ctx.Done():
		s.record(ctx.Err())
		return model.Report{}, fmt.Errorf("await report: %w", ctx.Err())
	}
}

func (s *Service) record(err error) {
	if err == nil {
		s.scored.Add(1)
		metrics.RecordSubmission(metrics.OutcomeScored)
		return
	}
	if code := trace.Code(err); code != "" {
		s.rejected.Add(1)
		metrics.RecordSubmission(metrics.OutcomeRejected)
		metrics.RecordRejection(code)
		return
	}
	s.failed.Add(1)
	metrics.RecordSubmission(metrics.OutcomeFailed)
}

// UpdateSettings swaps the settings snapshot. Evaluations already running
// keep the snapshot they started with.
func (s *Service) UpdateSettings(settings *pipeline.Settings) error {
	if settings == nil {
		return ErrNilSettings
	}
	s.settings.Store(settings)
	v := s.settingsVersion.Add(1)
	s.logger.Info(context.Background(), "settings updated", logger.Int64("version", v))
	return nil
}

// Settings returns the current snapshot.
func (s *Service) Settings() *pipeline.Settings {
	return s.settings.Load()
}

// Report returns the latest report of a session on the triage board.
func (s *Service) Report(ctx context.Context, sessionID string) (types.SessionReport, error) {
	board, err := s.currentBoard()
	if err != nil {
		return types.SessionReport{}, err
	}
	e, err := board.Get(ctx, sessionID)
	if err != nil {
		return types.SessionReport{}, err
	}
	return types.SessionReport{Rank: e.Rank, UpdatedAt: e.UpdatedAt, Report: e.Report}, nil
}

// Triage returns the n highest-risk sessions.
func (s *Service) Triage(ctx context.Context, n int) ([]types.TriageEntry, error) {
	board, err := s.currentBoard()
	if err != nil {
		return nil, err
	}
	entries, err := board.Top(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]types.TriageEntry, len(entries))
	for i, e := range entries {
		out[i] = types.Summarize(types.SessionReport{Rank: e.Rank, UpdatedAt: e.UpdatedAt, Report: e.Report})
	}
	return out, nil
}

func (s *Service) currentBoard() (repository.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.board == nil {
		return nil, ErrNotStarted
	}
	return s.board, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"boardSize":       s.boardSize,
		"settingsVersion": s.settingsVersion.Load(),
		"submitted":       s.submitted.Load(),
		"scored":          s.scored.Load(),
		"rejected":        s.rejected.Load(),
		"backpressure":    s.backpressure.Load(),
		"failed":          s.failed.Load(),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		sessions := s.board.Len(ctx)

		stats["queueLength"] = queueLen
		stats["boardSessions"] = sessions
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateBoardSessions(sessions)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}

func ruleNames(ids []model.RuleID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
