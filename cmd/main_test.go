package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/capmap/internal/adapters/http/api"
	app "github.com/okian/capmap/internal/app"
	"github.com/okian/capmap/internal/config"
	"github.com/okian/capmap/pkg/logger"
	"github.com/okian/capmap/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

// nominatimStub answers every search with the same coordinate.
func nominatimStub() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"-0.2105","lon":"-78.4936"}]`))
	}))
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("CAPMAP_ADDR", ":8080")
			_ = os.Setenv("CAPMAP_QUEUE_SIZE", "1000")
			_ = os.Setenv("CAPMAP_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("CAPMAP_ADDR")
				_ = os.Unsetenv("CAPMAP_QUEUE_SIZE")
				_ = os.Unsetenv("CAPMAP_WORKER_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When building the service from config", func() {
			cfg := config.New()
			cfg.WorkerCount = 3
			cfg.QueueSize = 16
			svc := newService(cfg, logger.Get())

			convey.Convey("Then the configured sizes are applied", func() {
				stats := svc.GetStats()
				convey.So(stats["workerCount"], convey.ShouldEqual, 3)
				convey.So(stats["queueSize"], convey.ShouldEqual, 16)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should return when ctx ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics updater", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then it should return when ctx ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startServiceMetricsUpdater(ctx, svc)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When metrics settings come from config", func() {
			cfg := config.New()
			cfg.MetricsNamespace = "espe"
			cfg.MetricsSubsystem = "cap"
			cfg.MetricsBucketsMS = []float64{1, 10, 100}
			cfg.MetricsLabels = map[string]string{"region": "sierra"}

			registry := prometheus.NewRegistry()
			metrics.NewManager(append(metricsOptions(cfg), metrics.WithPrometheusRegistry(registry))...)

			convey.Convey("Then every metric carries the configured prefix and labels", func() {
				families, err := registry.Gather()
				convey.So(err, convey.ShouldBeNil)
				convey.So(families, convey.ShouldNotBeEmpty)
				for _, f := range families {
					convey.So(strings.HasPrefix(f.GetName(), "espe_cap_"), convey.ShouldBeTrue)
					convey.So(f.GetMetric()[0].GetLabel()[0].GetValue(), convey.ShouldEqual, "sierra")
				}
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.So(func() {
				updateSystemMetrics()
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When testing service metrics update on a started service", func() {
			svc := app.New(app.WithWorkerCount(1), app.WithQueueSize(4))
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()

			convey.So(func() {
				updateServiceMetrics(svc)
			}, convey.ShouldNotPanic)
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the wired application against a stub geocoder", t, func() {
		stub := nominatimStub()
		defer stub.Close()

		cfg := config.New()
		cfg.GeocoderURL = stub.URL
		cfg.GeocoderRatePerSec = 0
		cfg.WorkerCount = 2

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc := newService(cfg, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		server := httptest.NewServer(newRouter(ctx, cfg, svc))
		defer server.Close()

		convey.Convey("When an alert with a safe zone is posted", func() {
			body := `{"area":"La Gasca","description":"Lluvias. Safe Zone: Parque La Carolina.","severity_es":"Severa"}`
			resp, err := http.Post(server.URL+"/api/alert", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			convey.Convey("Then it is acknowledged and listed with both coordinates", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

				list, err := http.Get(server.URL + "/api/alerts?order=desc")
				convey.So(err, convey.ShouldBeNil)
				defer func() { _ = list.Body.Close() }()

				var alerts []map[string]any
				convey.So(json.NewDecoder(list.Body).Decode(&alerts), convey.ShouldBeNil)
				convey.So(len(alerts), convey.ShouldEqual, 1)
				convey.So(alerts[0]["lat"], convey.ShouldEqual, -0.2105)
				convey.So(alerts[0]["severity_es"], convey.ShouldEqual, "Severa")
				places := alerts[0]["safe_places"].([]any)
				convey.So(len(places), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the docs and dashboard are requested", func() {
			for _, path := range []string{"/api-docs", "/openapi.yaml", "/dashboard", "/healthz", "/stats"} {
				resp, err := http.Get(server.URL + path)
				convey.So(err, convey.ShouldBeNil)
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				_ = resp.Body.Close()
			}
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When testing invalid configuration", func() {
			_ = os.Setenv("CAPMAP_ADDR", "")
			defer func() { _ = os.Unsetenv("CAPMAP_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a body exceeds the configured cap", func() {
			cfg := config.New()
			cfg.MaxBodyBytes = 32
			svc := app.New()
			r := newRouter(context.Background(), cfg, svc)

			req := httptest.NewRequest(http.MethodPost, "/api/alert",
				strings.NewReader(`{"description":"`+strings.Repeat("x", 64)+`"}`))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			convey.Convey("Then the router rejects it before ingestion", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusRequestEntityTooLarge)
				convey.So(svc.Count(context.Background()), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When testing service creation with invalid options", func() {
			svc := app.New(
				app.WithWorkerCount(0),
				app.WithQueueSize(0),
			)
			convey.So(svc, convey.ShouldNotBeNil)
		})
	})
}

func TestMainApplicationConcurrency(t *testing.T) {
	convey.Convey("Given main application concurrency", t, func() {
		convey.Convey("When testing concurrent component creation", func() {
			numGoroutines := 10
			done := make(chan bool, numGoroutines)

			for i := 0; i < numGoroutines; i++ {
				go func(id int) {
					defer func() { done <- true }()

					svc := app.New()
					if svc == nil {
						t.Errorf("Goroutine %d: service creation failed", id)
						return
					}
					if server := api.NewServer(svc, svc); server == nil {
						t.Errorf("Goroutine %d: HTTP server creation failed", id)
					}
				}(i)
			}

			for i := 0; i < numGoroutines; i++ {
				<-done
			}

			convey.Convey("Then all components should be created successfully", func() {
				convey.So(true, convey.ShouldBeTrue)
			})
		})
	})
}
