package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then every metric is registered under the capmap namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.alertsIngested.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "capmap_alerts_"), ShouldBeTrue)
				}
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("pipeline"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"region": "ec"}),
				WithPrometheusRegistry(registry),
			)
			manager.geocoderRequests.WithLabelValues(OutcomeResolved).Inc()

			Convey("Then names and labels follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "test_pipeline_geocoder_requests_total" {
						found = true
						labels := f.GetMetric()[0].GetLabel()
						var names []string
						for _, l := range labels {
							names = append(names, l.GetName())
						}
						So(names, ShouldContain, "region")
						So(names, ShouldContain, "outcome")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When the same registry is used twice", func() {
			registry := prometheus.NewRegistry()
			_ = NewManager(WithPrometheusRegistry(registry))

			Convey("Then duplicate registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording pipeline metrics", func() {
			before := testutil.ToFloat64(globalManager.alertsIngested)
			RecordAlertIngested(7)
			RecordEnrichLatency(12)
			RecordSafePlaceExtracted()
			RecordSafePlaceResolved()
			RecordDangerZoneUnresolved()
			RecordGeocoderRequest(OutcomeNoResults)
			RecordGeocoderLatency(3)

			Convey("Then counters and gauges move", func() {
				So(testutil.ToFloat64(globalManager.alertsIngested), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.alertsStored), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.geocoderRequests.WithLabelValues(OutcomeNoResults)), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording the remaining helpers", func() {
			Convey("Then none of them panic", func() {
				So(func() {
					RecordHTTPRequest("alerts", "GET", "200")
					RecordHTTPRequestDuration("alerts", "GET", "200", 1.5)
					UpdateQueueSize(3)
					UpdateQueueCapacity(10)
					UpdateQueueUtilization(0.3)
					RecordQueueEnqueueError()
					UpdateWorkerCount(4)
					RecordWorkerProcessingLatency(8)
					RecordErrorByComponent("queue", "full")
					RecordErrorByType("client_error", "medium")
					RecordErrorByEndpoint("alert", "POST", "client_error")
					UpdateSystemMemoryUsage(1024)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.2)
				}, ShouldNotPanic)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 10)
			})
		})

		Convey("When reading the registry", func() {
			Convey("Then it is the custom one", func() {
				So(GetRegistry(), ShouldEqual, customRegistry)
			})
		})
	})
}

func TestInit(t *testing.T) {
	Convey("Given configured metric options", t, func() {
		Reset(func() { _ = Init() })

		Convey("When the global metrics are rebuilt", func() {
			previous := GetRegistry()
			err := Init(
				WithNamespace("espe"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"region": "sierra"}),
			)
			So(err, ShouldBeNil)
			RecordAlertIngested(1)

			Convey("Then the served registry carries the new names and labels", func() {
				So(GetRegistry(), ShouldNotEqual, previous)
				families, gatherErr := GetRegistry().Gather()
				So(gatherErr, ShouldBeNil)
				var found bool
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "espe_alerts_"), ShouldBeTrue)
					if f.GetName() == "espe_alerts_ingested_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "region")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When the buckets are out of order", func() {
			previous := GetRegistry()
			err := Init(WithHistogramBuckets([]float64{10, 1}))

			Convey("Then the globals are left alone", func() {
				So(errors.Is(err, ErrInvalidBuckets), ShouldBeTrue)
				So(GetRegistry(), ShouldEqual, previous)
			})
		})
	})
}
