package metrics_test

import (
	"context"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/service-mesh/internal/instance"
	"github.com/angeloszaimis/service-mesh/internal/metrics"
	"github.com/angeloszaimis/service-mesh/internal/registry"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		collector = metrics.NewCollector(100, slog.Default())
		ctx, cancel = context.WithCancel(context.Background())
		collector.Start(ctx)
	})

	AfterEach(func() {
		cancel()
	})

	It("aggregates request outcome events", func() {
		collector.Emit(metrics.Event{
			Type:      metrics.EventRequestSent,
			Timestamp: time.Now(),
			Service:   "brain",
			Duration:  50 * time.Millisecond,
		})
		collector.Emit(metrics.Event{
			Type:      metrics.EventRequestFailed,
			Timestamp: time.Now(),
			Service:   "brain",
		})

		Eventually(func() int64 {
			return collector.Snapshot().TotalRequests
		}).Should(Equal(int64(1)))
		Eventually(func() int64 {
			return collector.Snapshot().TotalFailures
		}).Should(Equal(int64(1)))
	})

	It("aggregates retry exhaustion events", func() {
		collector.Emit(metrics.Event{
			Type:      metrics.EventRetriesExhausted,
			Timestamp: time.Now(),
			Service:   "brain",
		})

		Eventually(func() int64 {
			return collector.Snapshot().Services["brain"].RetriesExhausted
		}).Should(Equal(int64(1)))
	})

	It("drains queued events on shutdown", func() {
		drained := metrics.NewCollector(100, slog.Default())
		drainCtx, drainCancel := context.WithCancel(context.Background())

		for i := 0; i < 10; i++ {
			drained.Emit(metrics.Event{Type: metrics.EventRequestSent, Service: "brain"})
		}

		drained.Start(drainCtx)
		drainCancel()

		Eventually(func() int64 {
			return drained.Snapshot().TotalRequests
		}).Should(Equal(int64(10)))
	})

	It("does not block when the buffer is full", func() {
		tiny := metrics.NewCollector(1, slog.Default())

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 10; i++ {
				tiny.Emit(metrics.Event{Type: metrics.EventRequestSent, Service: "brain"})
			}
		}()
		Eventually(done).Should(BeClosed())
	})

	Describe("as a registry subscriber", func() {
		It("tracks instance registrations", func() {
			collector.OnServiceEvent(registry.Event{
				Type: registry.EventRegister,
				Instance: instance.Snapshot{
					Name:   "brain",
					URL:    "http://localhost:8081",
					Status: instance.StatusHealthy,
				},
			})

			Eventually(func() map[string]bool {
				return collector.Snapshot().Services["brain"].Instances
			}).Should(HaveKeyWithValue("http://localhost:8081", true))
		})

		It("tracks health demotions", func() {
			collector.OnServiceEvent(registry.Event{
				Type: registry.EventStatusChange,
				Instance: instance.Snapshot{
					Name:   "brain",
					URL:    "http://localhost:8081",
					Status: instance.StatusUnhealthy,
				},
			})

			Eventually(func() map[string]bool {
				return collector.Snapshot().Services["brain"].Instances
			}).Should(HaveKeyWithValue("http://localhost:8081", false))
		})

		It("removes deregistered instances", func() {
			collector.OnServiceEvent(registry.Event{
				Type: registry.EventRegister,
				Instance: instance.Snapshot{
					Name: "brain", URL: "http://localhost:8081", Status: instance.StatusHealthy,
				},
			})
			collector.OnServiceEvent(registry.Event{
				Type: registry.EventDeregister,
				Instance: instance.Snapshot{
					Name: "brain", URL: "http://localhost:8081", Status: instance.StatusHealthy,
				},
			})

			Eventually(func() map[string]metrics.ServiceMetrics {
				return collector.Snapshot().Services
			}).ShouldNot(HaveKey("brain"))
		})
	})
})
