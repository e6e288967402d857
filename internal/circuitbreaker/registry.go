package circuitbreaker

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry holds one circuit breaker per logical service name, created
// lazily on first use. All breakers share the same config.
type Registry struct {
	mutex    sync.RWMutex
	breakers map[string]*CircuitBreaker
	config   Config
	logger   *slog.Logger
}

func NewRegistry(config Config, logger *slog.Logger) *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		config:   config,
		logger:   logger,
	}
}

// GetBreaker returns the breaker for the named service, creating it on
// first use. Exactly one breaker exists per service for the registry's
// lifetime.
func (r *Registry) GetBreaker(serviceName string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[serviceName]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[serviceName]; exists {
		return cb
	}

	cb = NewCircuitBreaker(serviceName, r.config, r.logger)
	r.breakers[serviceName] = cb
	return cb
}

func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.breakers = make(map[string]*CircuitBreaker)
}

// Snapshot returns the observability snapshots of all breakers, sorted
// by service name.
func (r *Registry) Snapshot() []StatsSnapshot {
	r.mutex.RLock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mutex.RUnlock()

	snapshots := make([]StatsSnapshot, 0, len(breakers))
	for _, cb := range breakers {
		snapshots = append(snapshots, cb.GetStats())
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Name < snapshots[j].Name
	})
	return snapshots
}
