package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/inkcheck/internal/adapters/http/api"
	repository "github.com/okian/inkcheck/internal/adapters/repository"
	service "github.com/okian/inkcheck/internal/app"
	"github.com/okian/inkcheck/internal/domain/model"
	"github.com/okian/inkcheck/internal/domain/pipeline"
	"github.com/okian/inkcheck/internal/domain/trace"
	"github.com/okian/inkcheck/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDeps struct {
	mu sync.Mutex

	submitted [][]byte
	report    model.Report
	submitErr error
	outcomes  []service.Outcome
	batchErr  error

	session    types.SessionReport
	sessionErr error
	lastID     string

	triage    []types.TriageEntry
	triageErr error
	lastLimit int

	settings *pipeline.Settings
}

func (m *mockDeps) Submit(_ context.Context, raw []byte) (model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, raw)
	return m.report, m.submitErr
}

func (m *mockDeps) SubmitBatch(_ context.Context, raws [][]byte) ([]service.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, raws...)
	return m.outcomes, m.batchErr
}

func (m *mockDeps) Report(_ context.Context, id string) (types.SessionReport, error) {
	m.lastID = id
	return m.session, m.sessionErr
}

func (m *mockDeps) Triage(_ context.Context, n int) ([]types.TriageEntry, error) {
	m.lastLimit = n
	if m.triageErr != nil {
		return nil, m.triageErr
	}
	if n < len(m.triage) {
		return m.triage[:n], nil
	}
	return m.triage, nil
}

func (m *mockDeps) Settings() *pipeline.Settings { return m.settings }

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

func newMux(deps *mockDeps, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, opts...).
		Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) errorBody {
	var body errorBody
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := &mockDeps{
			report:   model.Report{SessionID: "s", Reasons: []string{}, Rules: []model.RuleID{}},
			settings: pipeline.DefaultSettings(),
		}
		mux := newMux(deps)

		Convey("Then health serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "inkcheck_")
		})

		Convey("Then stats are served as JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then unknown routes are not found", func() {
			w := do(mux, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are not found", func() {
			So(do(mux, http.MethodGet, "/submit", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/triage", "{}").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodDelete, "/sessions/x", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSubmitHandler(t *testing.T) {
	Convey("Given the submit endpoint", t, func() {
		deps := &mockDeps{
			report: model.Report{
				SessionID: "essay-1",
				Risk:      75,
				Severity:  model.SeverityHigh,
				Reasons:   []string{"large paste volume"},
				Rules:     []model.RuleID{"large_paste_volume"},
				Features:  map[string]float64{model.FeaturePastedCharRatio: 0.9},
			},
		}
		mux := newMux(deps, api.WithMaxBodyBytes(64))

		Convey("When the service scores the submission", func() {
			w := do(mux, http.MethodPost, "/submit", `{"text":"x"}`)

			Convey("Then the report is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got model.Report
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldResemble, deps.report)
				So(string(deps.submitted[0]), ShouldEqual, `{"text":"x"}`)
			})
		})

		Convey("When the service rejects the submission", func() {
			cases := []struct {
				err    error
				status int
				code   string
				field  string
			}{
				{&trace.Error{Kind: trace.ErrMalformedPayload, Field: "events[0].type", Reason: "bad type"}, http.StatusBadRequest, "malformed_payload", "events[0].type"},
				{&trace.Error{Kind: trace.ErrTimestampRegression, Field: "events[2].time", Reason: "went back"}, http.StatusUnprocessableEntity, "timestamp_regression", "events[2].time"},
				{&trace.Error{Kind: trace.ErrOversizeTrace, Field: "events", Reason: "too many"}, http.StatusRequestEntityTooLarge, "oversize_trace", "events"},
				{service.ErrBackpressure, http.StatusTooManyRequests, "backpressure", ""},
				{service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable", ""},
				{fmt.Errorf("await report: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, "unavailable", ""},
				{errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
			}

			for _, tc := range cases {
				deps.submitErr = tc.err
				w := do(mux, http.MethodPost, "/submit", `{}`)

				So(w.Code, ShouldEqual, tc.status)
				body := decodeError(w)
				So(body.Code, ShouldEqual, tc.code)
				So(body.Field, ShouldEqual, tc.field)
				So(body.Message, ShouldNotBeEmpty)
			}
		})

		Convey("When the body exceeds the limit", func() {
			w := do(mux, http.MethodPost, "/submit", strings.Repeat("x", 65))

			Convey("Then it is refused before reaching the service", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(decodeError(w).Code, ShouldEqual, "oversize_trace")
				So(deps.submitted, ShouldBeEmpty)
			})
		})
	})
}

func TestSubmitBatchHandler(t *testing.T) {
	Convey("Given the batch endpoint", t, func() {
		deps := &mockDeps{
			outcomes: []service.Outcome{
				{Report: model.Report{SessionID: "a", Risk: 10}},
				{Err: &trace.Error{Kind: trace.ErrMalformedPayload, Field: "text", Reason: "missing"}},
				{Err: service.ErrBackpressure},
			},
		}
		mux := newMux(deps)

		Convey("When posting an array of submissions", func() {
			w := do(mux, http.MethodPost, "/submit/batch", `[{"a":1}, {"b":2}, {"c":3}]`)

			Convey("Then each item answers in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var items []struct {
					Index  int           `json:"index"`
					Report *model.Report `json:"report"`
					Error  *errorBody    `json:"error"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &items), ShouldBeNil)
				So(items, ShouldHaveLength, 3)
				So(items[0].Report.SessionID, ShouldEqual, "a")
				So(items[0].Error, ShouldBeNil)
				So(items[1].Report, ShouldBeNil)
				So(items[1].Error.Code, ShouldEqual, "malformed_payload")
				So(items[1].Error.Field, ShouldEqual, "text")
				So(items[2].Index, ShouldEqual, 2)
				So(items[2].Error.Code, ShouldEqual, "backpressure")

				So(deps.submitted, ShouldHaveLength, 3)
				So(string(deps.submitted[1]), ShouldEqual, `{"b":2}`)
			})
		})

		Convey("When the body is not an array", func() {
			w := do(mux, http.MethodPost, "/submit/batch", `{"a":1}`)

			Convey("Then it is malformed", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "malformed_payload")
			})
		})

		Convey("When the batch is too large", func() {
			deps.batchErr = fmt.Errorf("%w: 500 items", service.ErrBatchTooLarge)
			w := do(mux, http.MethodPost, "/submit/batch", `[]`)

			Convey("Then it is refused whole", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(decodeError(w).Code, ShouldEqual, "batch_too_large")
			})
		})
	})
}

func TestSessionHandler(t *testing.T) {
	Convey("Given the session endpoint", t, func() {
		deps := &mockDeps{
			session: types.SessionReport{
				Rank:      2,
				UpdatedAt: time.Unix(1_700_000_000, 0).UTC(),
				Report:    model.Report{SessionID: "essay-9", Risk: 40, Severity: model.SeverityElevated},
			},
		}
		mux := newMux(deps)

		Convey("When the session is on the board", func() {
			w := do(mux, http.MethodGet, "/sessions/essay-9", "")

			Convey("Then its latest report and rank are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastID, ShouldEqual, "essay-9")
				var got map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got["rank"], ShouldEqual, 2)
				So(got["session_id"], ShouldEqual, "essay-9")
				So(got["severity"], ShouldEqual, "elevated")
			})
		})

		Convey("When the session is unknown", func() {
			deps.sessionErr = repository.ErrNotFound
			w := do(mux, http.MethodGet, "/sessions/ghost", "")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(w).Code, ShouldEqual, "not_found")
			})
		})

		Convey("When the path has no single id", func() {
			So(do(mux, http.MethodGet, "/sessions/", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/sessions/a/b", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestTriageHandler(t *testing.T) {
	Convey("Given the triage endpoint", t, func() {
		deps := &mockDeps{}
		for i := 0; i < 5; i++ {
			deps.triage = append(deps.triage, types.TriageEntry{Rank: i + 1, SessionID: fmt.Sprintf("s%d", i), Risk: 90 - i*10})
		}
		mux := newMux(deps, api.WithMaxTriageLimit(3))

		Convey("When asking within the limit", func() {
			w := do(mux, http.MethodGet, "/triage?limit=2", "")

			Convey("Then the top entries are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got []types.TriageEntry
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].SessionID, ShouldEqual, "s0")
			})
		})

		Convey("When no limit is given", func() {
			w := do(mux, http.MethodGet, "/triage", "")

			Convey("Then the default is capped by the maximum", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 3)
			})
		})

		Convey("When the limit is invalid", func() {
			for _, q := range []string{"0", "-1", "abc", "4"} {
				w := do(mux, http.MethodGet, "/triage?limit="+q, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "bad_request")
			}
		})

		Convey("When the board fails", func() {
			deps.triageErr = errors.New("disk on fire")
			w := do(mux, http.MethodGet, "/triage?limit=1", "")

			Convey("Then it is an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestConfigHandler(t *testing.T) {
	Convey("Given the config endpoint", t, func() {
		deps := &mockDeps{settings: pipeline.DefaultSettings()}
		mux := newMux(deps)

		Convey("When reading the effective config", func() {
			w := do(mux, http.MethodGet, "/config", "")

			Convey("Then thresholds, weights and rules are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got struct {
					Trace   map[string]any `json:"trace"`
					Scoring struct {
						Thresholds map[string]any `json:"thresholds"`
						Weights    map[string]int `json:"weights"`
						MaxScore   int            `json:"max_score"`
					} `json:"scoring"`
					Rules []struct {
						ID     string `json:"id"`
						Reason string `json:"reason"`
					} `json:"rules"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.Trace["max_events"], ShouldEqual, trace.DefaultMaxEvents)
				So(got.Scoring.Thresholds["paste_ratio_threshold"], ShouldEqual, 0.4)
				So(got.Scoring.MaxScore, ShouldEqual, 100)
				So(got.Rules, ShouldHaveLength, 11)
				So(got.Rules[0].Reason, ShouldEqual, "large paste volume")
				So(got.Scoring.Weights, ShouldHaveLength, 11)
			})
		})

		Convey("When no settings are loaded", func() {
			deps.settings = nil
			w := do(mux, http.MethodGet, "/config", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestRateLimit(t *testing.T) {
	Convey("Given a server limited to a burst of two submissions", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps, api.WithRateLimit(0.001, 2))

		Convey("When a third submission arrives immediately", func() {
			codes := make([]int, 3)
			for i := range codes {
				codes[i] = do(mux, http.MethodPost, "/submit", `{}`).Code
			}

			Convey("Then it is refused with 429", func() {
				So(codes[0], ShouldEqual, http.StatusOK)
				So(codes[1], ShouldEqual, http.StatusOK)
				So(codes[2], ShouldEqual, http.StatusTooManyRequests)
				So(deps.submitted, ShouldHaveLength, 2)
			})

			Convey("And reads are not limited", func() {
				So(do(mux, http.MethodGet, "/stats", "").Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given operation errors", t, func() {
		cause := errors.New("eof")
		err := api.WrapKind("api.submit", api.ErrBadRequest, cause)

		Convey("Then both kind and cause are reachable", func() {
			So(err, ShouldWrap, api.ErrBadRequest)
			So(err, ShouldWrap, cause)
			So(err.Error(), ShouldEqual, "api.submit: bad request: eof")
		})

		Convey("Then Wrap of nil stays nil", func() {
			So(api.Wrap("op", nil), ShouldBeNil)
		})

		Convey("Then NewKind names the op", func() {
			So(api.NewKind("api.get_triage", api.ErrBadRequest).Error(), ShouldEqual, "api.get_triage: bad request")
		})
	})
}
