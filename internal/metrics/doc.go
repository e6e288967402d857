// Package metrics provides real-time metrics collection for the
// communication layer.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Request and failure counts per service
//   - Retry exhaustion counts
//   - Response times with percentile calculations (P50, P95, P99)
//   - Instance membership and health, fed by registry lifecycle events
//
// The collector runs in a dedicated goroutine and processes events
// without blocking the request path. Events are sent via a buffered
// channel with non-blocking semantics; when the buffer is full, events
// are dropped rather than stalling the registry or dispatcher.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//	reg.Subscribe("emotion", collector)
//
//	// Get metrics snapshot
//	snapshot := collector.Snapshot()
//
// The package provides thread-safe metrics storage using sync.RWMutex
// and supports graceful shutdown with event draining to prevent data
// loss.
package metrics
