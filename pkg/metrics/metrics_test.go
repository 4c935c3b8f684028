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
		Convey("When creating with a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then collectors are registered under the default namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.contestsApplied.WithLabelValues("race").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "sportselo_rating_contests_applied_total")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("engine"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then options are applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "engine")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 5, 10})
				So(manager.constLabels["env"], ShouldEqual, "test")
			})
		})

		Convey("When registering twice on the same registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then registration panics on duplicate collectors", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording contest lifecycle metrics", func() {
			before := testutil.ToFloat64(globalManager.contestsApplied.WithLabelValues("pairwise"))
			RecordContestSubmitted("pairwise")
			RecordContestApplied("pairwise")
			RecordContestApplied("pairwise")
			RecordContestRejected("race", "duplicate_position")
			RecordContestDuplicate()

			Convey("Then counters move", func() {
				So(testutil.ToFloat64(globalManager.contestsApplied.WithLabelValues("pairwise")), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.contestsRejected.WithLabelValues("race", "duplicate_position")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When observing rating deltas", func() {
			Convey("Then negative deltas are recorded as magnitudes", func() {
				So(func() {
					ObserveRatingDelta("race", -14.43)
					ObserveRatingDelta("race", 3.2)
				}, ShouldNotPanic)
			})
		})

		Convey("When updating gauges", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(100)
			UpdateWorkerCount(4)
			UpdateWorkerInFlight(2)
			UpdateWorkerPending(1)
			UpdateCompetitorsTotal("formula-one", 20)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.competitorsTotal.WithLabelValues("formula-one")), ShouldEqual, 20)
			})
		})

		Convey("When recording HTTP and error metrics", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordHTTPRequest("drivers", "GET", "200")
					RecordHTTPRequestDuration("drivers", "GET", "200", 3)
					RecordErrorByComponent("worker", "apply_error")
					RecordQueueEnqueueError("full")
					RecordStoreLatency("apply_updates", 1)
					RecordEventPublished("ok")
					RecordApplyLatency(2)
					UpdateSystemMemoryUsage(1024)
					UpdateSystemGoroutineCount(12)
				}, ShouldNotPanic)
			})
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then it succeeds", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
