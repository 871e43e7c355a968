package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.submissions.WithLabelValues(OutcomeScored).Inc()

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_submissions_total" {
						found = true
					}
					So(strings.HasPrefix(f.GetName(), "test_unit_"), ShouldBeTrue)
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestScoringMetrics(t *testing.T) {
	Convey("Given the global recorders", t, func() {
		Convey("When recording submissions and rejections", func() {
			before := testutil.ToFloat64(globalManager.submissions.WithLabelValues(OutcomeRejected))
			RecordSubmission(OutcomeRejected)
			RecordRejection("malformed_payload")

			Convey("Then the labelled counters advance", func() {
				So(testutil.ToFloat64(globalManager.submissions.WithLabelValues(OutcomeRejected)), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.rejections.WithLabelValues("malformed_payload")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording a risk with triggered rules", func() {
			before := testutil.ToFloat64(globalManager.ruleTriggers.WithLabelValues("no_organic_typing"))
			RecordRisk(100, []string{"large_paste_volume", "no_organic_typing"})

			Convey("Then each rule is counted once", func() {
				So(testutil.ToFloat64(globalManager.ruleTriggers.WithLabelValues("no_organic_typing")), ShouldEqual, before+1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateBoardSessions(7)
			UpdateQueueCapacity(64)
			UpdateWorkerCount(3)

			Convey("Then they hold the latest value", func() {
				So(testutil.ToFloat64(globalManager.boardSessions), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 64)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 3)
			})
		})

		Convey("When adjusting busy workers", func() {
			base := testutil.ToFloat64(globalManager.workerBusy)
			AddWorkerBusy(2)
			AddWorkerBusy(-1)
			So(testutil.ToFloat64(globalManager.workerBusy), ShouldEqual, base+1)
		})

		Convey("When observing histograms and vectors", func() {
			So(func() {
				RecordEvaluationLatency(1.5)
				RecordTraceEvents(1200)
				RecordConfigReload("applied")
				RecordBoardEviction()
				RecordBoardUpdateLatency(0.1)
				RecordBoardQueryLatency(0.1)
				UpdateQueueSize(1)
				UpdateQueueUtilization(0.5)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(0.2)
				UpdateWorkerMessagesPerSecond(10)
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordHTTPRequest("/submit", "POST", "200")
				RecordHTTPRequestDuration("/submit", "POST", "200", 3)
				RecordRateLimited("/submit")
				RecordErrorByComponent("api", "malformed_payload")
				RecordErrorByEndpoint("/submit", "POST", "malformed_payload")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("Then the registry gathers without error", func() {
			_, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
		})
	})
}
