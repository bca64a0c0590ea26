package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	service "github.com/okian/capmap/internal/app"
	"github.com/okian/capmap/internal/domain/model"
	"github.com/okian/capmap/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// tableResolver resolves from a fixed map.
type tableResolver map[string]model.Coordinate

func (t tableResolver) Resolve(_ context.Context, text string) (model.Coordinate, bool) {
	c, ok := t[text]
	return c, ok
}

// blockingResolver holds every lookup until release is closed.
type blockingResolver struct {
	release chan struct{}
}

func (b *blockingResolver) Resolve(ctx context.Context, _ string) (model.Coordinate, bool) {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return model.Coordinate{}, false
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["queueSize"], ShouldEqual, 1024)
			So(stats["alertCount"], ShouldEqual, 0)
		})

		Convey("And reads work before start", func() {
			So(svc.Alerts(context.Background()), ShouldBeEmpty)
			So(svc.Count(context.Background()), ShouldEqual, 0)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50),
		)

		Convey("Then the options are applied", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 50)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithResolver(tableResolver{}))
		defer svc.Stop()

		Convey("When starting the service twice", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["queueLength"], ShouldEqual, 0)
			})

			Convey("And after stopping it rejects alerts", func() {
				svc.Stop()
				svc.Stop()

				_, err := svc.Ingest(context.Background(), model.RawAlert{Area: "Quito"})
				So(errors.Is(err, service.ErrUnavailable), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When ingesting before start", func() {
			_, err := svc.Ingest(context.Background(), model.RawAlert{})

			Convey("Then the service is unavailable", func() {
				So(errors.Is(err, service.ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestService_Ingest(t *testing.T) {
	Convey("Given a started service with a stub resolver", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithResolver(tableResolver{"Quito, Ecuador": {Lat: -0.22, Lng: -78.51}}),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When an alert is ingested", func() {
			res, err := svc.Ingest(ctx, model.RawAlert{Area: "Quito", Headline: "Sismo"})

			Convey("Then it is stored and the count is returned", func() {
				So(err, ShouldBeNil)
				So(res.Count, ShouldEqual, 1)
				So(res.Alert.Danger, ShouldNotBeNil)
				So(res.Alert.ID, ShouldNotBeEmpty)

				stored := svc.Alerts(ctx)
				So(len(stored), ShouldEqual, 1)
				So(stored[0].Headline, ShouldEqual, "Sismo")

				byID, err := svc.Alert(ctx, res.Alert.ID)
				So(err, ShouldBeNil)
				So(byID.ID, ShouldEqual, res.Alert.ID)
			})
		})

		Convey("When many alerts are ingested concurrently", func() {
			const n = 50
			counts := make(chan int, n)
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, err := svc.Ingest(ctx, model.RawAlert{Area: "Quito"})
					if err == nil {
						counts <- res.Count
					}
				}()
			}
			wg.Wait()
			close(counts)

			Convey("Then every count is unique and the store holds them all", func() {
				seen := make(map[int]bool)
				for c := range counts {
					seen[c] = true
				}
				So(len(seen), ShouldEqual, n)
				for i := 1; i <= n; i++ {
					So(seen[i], ShouldBeTrue)
				}
				So(svc.Count(ctx), ShouldEqual, n)
			})
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a service with one worker, a one-slot queue and a stalled resolver", t, func() {
		resolver := &blockingResolver{release: make(chan struct{})}
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
			service.WithResolver(resolver),
		)
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("When more alerts arrive than the pipeline can hold", func() {
			const n = 6
			errs := make(chan error, n)
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_, err := svc.Ingest(ctx, model.RawAlert{Area: "Quito"})
					errs <- err
				}()
			}

			// Let the overflow fail fast, then unblock the held ones.
			time.Sleep(200 * time.Millisecond)
			close(resolver.release)
			wg.Wait()
			close(errs)
			svc.Stop()

			Convey("Then the overflow is rejected with ErrBackpressure", func() {
				var rejected, stored int
				for err := range errs {
					switch {
					case err == nil:
						stored++
					case errors.Is(err, service.ErrBackpressure):
						rejected++
					}
				}
				So(rejected, ShouldBeGreaterThan, 0)
				So(stored, ShouldBeGreaterThan, 0)
				So(rejected+stored, ShouldEqual, n)
				So(svc.Count(context.Background()), ShouldEqual, stored)
			})
		})
	})
}

func TestService_CallerGivesUp(t *testing.T) {
	Convey("Given a service whose lookups take a while", t, func() {
		resolver := &blockingResolver{release: make(chan struct{})}
		svc := service.New(service.WithWorkerCount(1), service.WithResolver(resolver))
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("When the caller's context ends before the alert is stored", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			_, err := svc.Ingest(ctx, model.RawAlert{Area: "Quito"})

			close(resolver.release)
			svc.Stop()

			Convey("Then the caller sees the deadline but the alert is still stored", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(svc.Count(context.Background()), ShouldEqual, 1)
			})
		})
	})
}
