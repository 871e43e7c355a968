package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/inkcheck/internal/adapters/mq/queue"
	worker "github.com/okian/inkcheck/internal/adapters/mq/worker"
	model "github.com/okian/inkcheck/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 64)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

// evaluator scores the payload as its session id, failing for "bad".
func evaluator() worker.EvaluatorFunc {
	return func(_ context.Context, payload []byte) (model.Report, error) {
		if string(payload) == "bad" {
			return model.Report{}, errors.New("malformed")
		}
		return model.Report{SessionID: string(payload), Risk: len(payload)}, nil
	}
}

type mockRecorder struct {
	mu      sync.Mutex
	reports map[string]model.Report
	err     error
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{reports: make(map[string]model.Report)}
}

func (r *mockRecorder) Upsert(_ context.Context, report model.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.reports[report.SessionID] = report
	return nil
}

func (r *mockRecorder) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *mockRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

func submit(q *mockQueue, payload string) chan queue.Result {
	reply := make(chan queue.Result, 1)
	q.jobs <- queue.Job{ID: payload, Payload: []byte(payload), Reply: reply}
	return reply
}

func await(reply chan queue.Result) queue.Result {
	select {
	case res := <-reply:
		return res
	case <-time.After(2 * time.Second):
		return queue.Result{Err: errors.New("timed out waiting for reply")}
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running worker with a recorder", t, func() {
		q := newMockQueue()
		rec := newMockRecorder()
		w := worker.NewInMemoryWorker(q, evaluator(), worker.WithName("test-worker"), worker.WithRecorder(rec))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a valid job arrives", func() {
			res := await(submit(q, "essay-1"))

			convey.Convey("Then the caller gets the report and the board records it", func() {
				convey.So(res.Err, convey.ShouldBeNil)
				convey.So(res.Report.SessionID, convey.ShouldEqual, "essay-1")
				convey.So(rec.len(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When evaluation fails", func() {
			res := await(submit(q, "bad"))

			convey.Convey("Then the error is returned and nothing is recorded", func() {
				convey.So(res.Err, convey.ShouldNotBeNil)
				convey.So(rec.len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the board refuses the report", func() {
			rec.fail(errors.New("board full"))
			res := await(submit(q, "essay-2"))

			convey.Convey("Then the score is still returned", func() {
				convey.So(res.Err, convey.ShouldBeNil)
				convey.So(res.Report.SessionID, convey.ShouldEqual, "essay-2")
			})
		})

		convey.Convey("When a job has no reply channel", func() {
			q.jobs <- queue.Job{ID: "fire-and-forget", Payload: []byte("fire-and-forget")}
			res := await(submit(q, "after"))

			convey.Convey("Then the worker keeps going", func() {
				convey.So(res.Err, convey.ShouldBeNil)
				convey.So(res.Report.SessionID, convey.ShouldEqual, "after")
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()

			convey.Convey("Then it stops gracefully", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a worker whose context is cancelled", t, func() {
		q := newMockQueue()
		w := worker.NewInMemoryWorker(q, evaluator())
		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})
		go func() {
			w.Run(ctx)
			close(stopped)
		}()
		cancel()

		convey.Convey("Then Run returns", func() {
			select {
			case <-stopped:
			case <-time.After(time.Second):
				t.Fatal("worker did not stop")
			}
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a pool", t, func() {
		convey.Convey("When created with a non-positive count", func() {
			p := worker.NewPool(0, newMockQueue(), evaluator())

			convey.Convey("Then it sizes itself from the CPU count", func() {
				convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When many jobs are submitted concurrently", func() {
			q := newMockQueue()
			rec := newMockRecorder()
			p := worker.NewPool(4, q, evaluator(), worker.WithRecorder(rec))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			p.Start(ctx)

			const n = 50
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					res := await(submit(q, fmt.Sprintf("session-%02d", i)))
					errs <- res.Err
				}(i)
			}
			wg.Wait()
			close(errs)

			convey.Convey("Then every job is answered and recorded", func() {
				for err := range errs {
					convey.So(err, convey.ShouldBeNil)
				}
				convey.So(rec.len(), convey.ShouldEqual, n)
			})

			convey.Convey("And shutdown drains and returns", func() {
				convey.So(p.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When shut down twice", func() {
			q := newMockQueue()
			p := worker.NewPool(2, q, evaluator())
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			p.Start(ctx)

			convey.Convey("Then both calls return without panicking or hanging", func() {
				var first, second error
				done := make(chan struct{})
				go func() {
					defer close(done)
					first = p.Shutdown(context.Background())
					second = p.Shutdown(context.Background())
				}()
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					t.Fatal("pool did not stop")
				}
				convey.So(first, convey.ShouldBeNil)
				convey.So(second, convey.ShouldBeNil)
			})
		})
	})
}
