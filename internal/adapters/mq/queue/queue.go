// Package queue holds submitted traces until a worker picks them up.
//
// The queue is a bounded channel: a full queue refuses new work instead of
// blocking, which the service surfaces to clients as backpressure.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/inkcheck/internal/domain/model"
	"github.com/okian/inkcheck/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Result is what a worker sends back for one job.
type Result struct {
	Report model.Report
	Err    error
}

// Job is one raw submission awaiting evaluation. Reply must be buffered so a
// worker never blocks on a caller that has gone away.
type Job struct {
	ID         string
	Payload    []byte
	EnqueuedAt time.Time
	Reply      chan<- Result
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job, returning ErrFull or ErrClosed when it cannot.
	Enqueue(ctx context.Context, job Job) error

	// Dequeue returns a channel of jobs that is closed when the queue closes.
	Dequeue(ctx context.Context) <-chan Job

	Len(ctx context.Context) int
	Cap() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds a job to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, job Job) error { //nolint:gocritic // hugeParam: Job travels by value through the channel
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.refuse("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		q.refuse("context_cancelled")
		return fmt.Errorf("enqueue: %w", err)
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	select {
	case q.jobs <- job:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		q.refuse("queue_full")
		return ErrFull
	}
}

func (q *InMemoryQueue) refuse(reason string) {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
}

func (q *InMemoryQueue) observe() {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Dequeue returns a channel that will receive jobs as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-q.jobs:
				if !ok {
					return
				}
				select {
				case out <- job:
					metrics.RecordQueueDequeue()
					q.observe()
				case <-ctx.Done():
					job.fail(ctx.Err())
					return
				}
			}
		}
	}()
	return out
}

// fail replies with err if anyone is listening.
func (j Job) fail(err error) { //nolint:gocritic // hugeParam: mirrors channel value semantics
	if j.Reply == nil {
		return
	}
	select {
	case j.Reply <- Result{Err: err}:
	default:
	}
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	q.observe()
	return len(q.jobs)
}

// Cap returns the configured capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close stops accepting jobs. Jobs already queued are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
