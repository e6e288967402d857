package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/angeloszaimis/service-mesh/internal/circuitbreaker"
	"github.com/angeloszaimis/service-mesh/internal/metrics"
	"github.com/angeloszaimis/service-mesh/internal/registry"
)

const (
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 1 * time.Second
	DefaultRequestTimeout = 10 * time.Second
)

// Config holds the dispatcher's retry policy.
type Config struct {
	// MaxRetries is the number of transport attempts per Send.
	MaxRetries int
	// RetryDelay is the fixed delay between attempts.
	RetryDelay time.Duration
	// RequestTimeout bounds each individual transport attempt.
	RequestTimeout time.Duration
}

// Endpoint is a statically configured service instance registered when
// the dispatcher starts.
type Endpoint struct {
	Service  string
	URL      string
	Metadata map[string]string
}

// Dispatcher is the composition root of the communication layer: it asks
// the registry for a healthy instance, wraps the transport call in the
// service's circuit breaker with bounded retries, refreshes the
// instance's heartbeat on success and demotes it when retries are
// exhausted. Application code sends requests only through Send.
type Dispatcher struct {
	registry  *registry.Registry
	breakers  *circuitbreaker.Registry
	transport Transport
	config    Config
	endpoints []Endpoint
	logger    *slog.Logger
	collector *metrics.Collector

	startOnce sync.Once
}

// New creates a Dispatcher. The registry is injected and shared; the
// breaker registry is owned exclusively by the dispatcher. A nil
// transport defaults to HTTP; zero config fields get the package
// defaults.
func New(reg *registry.Registry, transport Transport, config Config, endpoints []Endpoint, logger *slog.Logger) *Dispatcher {
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if transport == nil {
		transport = NewHTTPTransport(config.RequestTimeout)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		registry:  reg,
		breakers:  circuitbreaker.NewRegistry(circuitbreaker.DefaultConfig(), logger),
		transport: transport,
		config:    config,
		endpoints: endpoints,
		logger:    logger,
	}
}

// SetBreakerConfig replaces the shared breaker configuration. Must be
// called before the first Send.
func (d *Dispatcher) SetBreakerConfig(config circuitbreaker.Config) {
	d.breakers = circuitbreaker.NewRegistry(config, d.logger)
}

// SetCollector installs a metrics collector that receives request
// outcome events. Must be called before the first Send.
func (d *Dispatcher) SetCollector(c *metrics.Collector) {
	d.collector = c
}

// Breakers exposes the breaker registry for the observability surface.
func (d *Dispatcher) Breakers() *circuitbreaker.Registry {
	return d.breakers
}

// Start starts the underlying registry and registers the statically
// configured endpoints. Idempotent; Send calls it lazily.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		d.registry.Start()
		for _, ep := range d.endpoints {
			d.registry.Register(ep.Service, ep.URL, ep.Metadata)
		}
		d.logger.Info("Dispatcher started",
			slog.Int("static_endpoints", len(d.endpoints)))
	})
}

// Stop stops the underlying registry.
func (d *Dispatcher) Stop() {
	d.registry.Stop()
	d.logger.Info("Dispatcher stopped")
}

// Send dispatches a request to one healthy instance of the named
// service.
//
// Failure modes surfaced to the caller:
//   - *ServiceUnavailableError: no healthy instance; nothing to retry.
//   - *circuitbreaker.Error unwrapping to circuitbreaker.ErrOpen: the
//     breaker rejected the call before any transport attempt.
//   - *RetriesExhaustedError: every transport attempt failed; the
//     selected instance has been marked unhealthy.
//
// On any successful attempt the instance's heartbeat is refreshed before
// the response is returned.
func (d *Dispatcher) Send(ctx context.Context, serviceName, endpoint, method string, data any) (*Response, error) {
	d.Start()

	inst, ok := d.registry.GetService(serviceName)
	if !ok {
		return nil, &ServiceUnavailableError{Service: serviceName}
	}

	target := strings.TrimRight(inst.URL, "/") + endpoint

	d.logger.Debug("Dispatching request",
		slog.String("service", serviceName),
		slog.String("method", method),
		slog.String("url", target))

	breaker := d.breakers.GetBreaker(serviceName)

	var response *Response
	err := breaker.Call(ctx, func(ctx context.Context) error {
		var lastErr error

		for attempt := 1; attempt <= d.config.MaxRetries; attempt++ {
			start := time.Now()
			res, err := d.attempt(ctx, target, method, data)
			if err == nil {
				d.registry.Heartbeat(serviceName, inst.URL)
				d.emit(metrics.Event{
					Type:      metrics.EventRequestSent,
					Timestamp: time.Now(),
					Service:   serviceName,
					URL:       inst.URL,
					Duration:  time.Since(start),
				})
				response = res
				return nil
			}
			lastErr = err

			d.logger.Warn("Request attempt failed",
				slog.String("service", serviceName),
				slog.String("url", target),
				slog.Int("attempt", attempt),
				slog.Int("max_retries", d.config.MaxRetries),
				slog.Any("err", err))
			d.emit(metrics.Event{
				Type:      metrics.EventRequestFailed,
				Timestamp: time.Now(),
				Service:   serviceName,
				URL:       inst.URL,
			})

			if attempt == d.config.MaxRetries {
				break
			}

			if err := sleep(ctx, d.config.RetryDelay); err != nil {
				lastErr = err
				break
			}
		}

		d.registry.MarkUnhealthy(serviceName, inst.URL)
		d.emit(metrics.Event{
			Type:      metrics.EventRetriesExhausted,
			Timestamp: time.Now(),
			Service:   serviceName,
			URL:       inst.URL,
		})
		return &RetriesExhaustedError{
			Service:  serviceName,
			URL:      inst.URL,
			Attempts: d.config.MaxRetries,
			Cause:    lastErr,
		}
	})

	if err != nil {
		// Retry exhaustion is a dispatcher-level outcome; surface it
		// directly rather than wrapped in the breaker error.
		var exhausted *RetriesExhaustedError
		if errors.As(err, &exhausted) {
			return nil, exhausted
		}
		return nil, err
	}

	return response, nil
}

// attempt performs one transport call bounded by the per-request
// timeout.
func (d *Dispatcher) attempt(ctx context.Context, target, method string, data any) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.config.RequestTimeout)
	defer cancel()
	return d.transport.Do(attemptCtx, target, method, data)
}

func (d *Dispatcher) emit(event metrics.Event) {
	if d.collector != nil {
		d.collector.Emit(event)
	}
}

// sleep waits for the retry delay, aborting early if the context is
// done.
func sleep(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
