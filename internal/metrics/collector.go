package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/service-mesh/internal/instance"
	"github.com/angeloszaimis/service-mesh/internal/registry"
)

type EventType string

const (
	EventInstanceRegistered   EventType = "instance_registered"
	EventInstanceDeregistered EventType = "instance_deregistered"
	EventHealthChanged        EventType = "health_changed"
	EventRequestSent          EventType = "request_sent"
	EventRequestFailed        EventType = "request_failed"
	EventRetriesExhausted     EventType = "retries_exhausted"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Service   string
	URL       string
	Duration  time.Duration
	Healthy   bool
}

// Collector drains instance lifecycle and request outcome events from a
// buffered channel into Metrics. It implements registry.Subscriber, so
// it can be attached directly to the service registry.
type Collector struct {
	eventCh chan Event
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan Event, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- Event {
	return c.eventCh
}

// Emit queues an event without blocking. Events are dropped when the
// buffer is full; metrics are best-effort.
func (c *Collector) Emit(event Event) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("Metrics event dropped", slog.String("type", string(event.Type)))
	}
}

// OnServiceEvent translates a registry lifecycle event and queues it.
func (c *Collector) OnServiceEvent(event registry.Event) {
	e := Event{
		Timestamp: time.Now(),
		Service:   event.Instance.Name,
		URL:       event.Instance.URL,
		Healthy:   event.Instance.Status == instance.StatusHealthy,
	}

	switch event.Type {
	case registry.EventRegister:
		e.Type = EventInstanceRegistered
	case registry.EventDeregister:
		e.Type = EventInstanceDeregistered
	case registry.EventStatusChange:
		e.Type = EventHealthChanged
	default:
		return
	}

	c.Emit(e)
}

// Snapshot returns the current aggregated metrics.
func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventRequestSent:
		c.metrics.IncrementRequests(event.Service)
		c.metrics.RecordResponse(event.Service, event.Duration)

	case EventRequestFailed:
		c.metrics.IncrementFailures(event.Service)

	case EventRetriesExhausted:
		c.metrics.IncrementExhausted(event.Service)

	case EventInstanceRegistered:
		c.metrics.UpdateInstance(event.Service, event.URL, event.Healthy)

	case EventInstanceDeregistered:
		c.metrics.RemoveInstance(event.Service, event.URL)

	case EventHealthChanged:
		c.metrics.UpdateInstance(event.Service, event.URL, event.Healthy)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

// Compile-time check that Collector can subscribe to the registry.
var _ registry.Subscriber = (*Collector)(nil)
