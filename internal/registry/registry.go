package registry

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/angeloszaimis/service-mesh/internal/instance"
	"github.com/angeloszaimis/service-mesh/internal/strategy"
)

const (
	DefaultHeartbeatTimeout = 30 * time.Second
	DefaultSweepInterval    = 5 * time.Second
)

// Config holds the registry's liveness settings.
type Config struct {
	// HeartbeatTimeout is how long an instance stays selectable without
	// a fresh heartbeat.
	HeartbeatTimeout time.Duration
	// SweepInterval is how often the background sweep demotes instances
	// with lapsed heartbeats.
	SweepInterval time.Duration
}

// Registry tracks named services, their instances and liveness. It is
// the sole writer of instance status; selection among healthy instances
// is delegated to a per-service strategy.
type Registry struct {
	mutex       sync.RWMutex
	services    map[string]map[string]*instance.Instance
	subscribers map[string][]Subscriber
	selectors   map[string]strategy.Strategy
	newStrategy func() strategy.Strategy
	config      Config
	logger      *slog.Logger

	runMutex sync.Mutex
	cancelCh chan struct{}
	doneCh   chan struct{}
}

// New creates a stopped Registry. A nil strategy factory defaults to
// round robin; zero config fields get the package defaults.
func New(config Config, newStrategy func() strategy.Strategy, logger *slog.Logger) *Registry {
	if config.HeartbeatTimeout <= 0 {
		config.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultSweepInterval
	}
	if newStrategy == nil {
		newStrategy = strategy.NewRoundRobinStrategy
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		services:    make(map[string]map[string]*instance.Instance),
		subscribers: make(map[string][]Subscriber),
		selectors:   make(map[string]strategy.Strategy),
		newStrategy: newStrategy,
		config:      config,
		logger:      logger,
	}
}

// Start launches the background sweep loop. Calling Start on a running
// registry is a no-op.
func (r *Registry) Start() {
	r.runMutex.Lock()
	defer r.runMutex.Unlock()

	if r.cancelCh != nil {
		return
	}

	r.cancelCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.sweepLoop(r.cancelCh, r.doneCh)

	r.logger.Info("Service registry started")
}

// Stop cancels the sweep loop and waits for it to finish. No background
// work survives once Stop returns. Stopping a stopped registry is a no-op.
func (r *Registry) Stop() {
	r.runMutex.Lock()
	defer r.runMutex.Unlock()

	if r.cancelCh == nil {
		return
	}

	close(r.cancelCh)
	<-r.doneCh
	r.cancelCh = nil
	r.doneCh = nil

	r.logger.Info("Service registry stopped")
}

// Register adds or replaces the instance at url for the named service.
// The instance starts healthy with a fresh heartbeat; re-registering the
// same (service, url) pair overwrites without error. Returns the url.
func (r *Registry) Register(serviceName, url string, metadata map[string]string) string {
	inst := instance.New(serviceName, url, metadata)

	r.mutex.Lock()
	if r.services[serviceName] == nil {
		r.services[serviceName] = make(map[string]*instance.Instance)
	}
	r.services[serviceName][url] = inst
	r.mutex.Unlock()

	r.logger.Info("Registered service instance",
		slog.String("service", serviceName),
		slog.String("url", url))

	r.notifySubscribers(serviceName, Event{Type: EventRegister, Instance: inst.Snapshot()})
	return url
}

// Deregister removes the instance at url. Removing the last instance of
// a service drops the service entry entirely. Unknown instances are a
// silent no-op.
func (r *Registry) Deregister(serviceName, url string) {
	r.mutex.Lock()
	instances, ok := r.services[serviceName]
	if !ok {
		r.mutex.Unlock()
		return
	}
	inst, ok := instances[url]
	if !ok {
		r.mutex.Unlock()
		return
	}
	delete(instances, url)
	if len(instances) == 0 {
		delete(r.services, serviceName)
		delete(r.selectors, serviceName)
	}
	r.mutex.Unlock()

	r.logger.Info("Deregistered service instance",
		slog.String("service", serviceName),
		slog.String("url", url))

	r.notifySubscribers(serviceName, Event{Type: EventDeregister, Instance: inst.Snapshot()})
}

// Heartbeat refreshes the instance's liveness timestamp and re-promotes
// it to healthy, making it selectable again without waiting for a sweep.
// Heartbeats never create instances; unknown targets are a no-op.
func (r *Registry) Heartbeat(serviceName, url string) {
	r.mutex.RLock()
	inst := r.lookup(serviceName, url)
	r.mutex.RUnlock()

	if inst != nil {
		inst.Heartbeat()
	}
}

// MarkUnhealthy demotes the instance immediately, without waiting for
// the sweep. The dispatcher uses this after exhausting its retries.
// Unknown targets are a no-op.
func (r *Registry) MarkUnhealthy(serviceName, url string) {
	r.mutex.RLock()
	inst := r.lookup(serviceName, url)
	r.mutex.RUnlock()

	if inst == nil || !inst.SetStatus(instance.StatusUnhealthy) {
		return
	}

	r.logger.Warn("Instance marked unhealthy",
		slog.String("service", serviceName),
		slog.String("url", url))

	r.notifySubscribers(serviceName, Event{Type: EventStatusChange, Instance: inst.Snapshot()})
}

// GetService selects one healthy, heartbeat-fresh instance of the named
// service using the service's load balancing strategy. Returns false if
// no candidate exists.
func (r *Registry) GetService(serviceName string) (instance.Snapshot, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	instances, ok := r.services[serviceName]
	if !ok {
		return instance.Snapshot{}, false
	}

	candidates := make([]*instance.Instance, 0, len(instances))
	for _, inst := range instances {
		if inst.IsHealthy() && inst.Fresh(r.config.HeartbeatTimeout) {
			candidates = append(candidates, inst)
		}
	}
	if len(candidates) == 0 {
		return instance.Snapshot{}, false
	}

	// Map iteration order is random; the strategy needs a stable order
	// to rotate over.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].URL() < candidates[j].URL()
	})

	selector, ok := r.selectors[serviceName]
	if !ok {
		selector = r.newStrategy()
		r.selectors[serviceName] = selector
	}

	chosen := selector.Select(candidates)
	if chosen == nil {
		return instance.Snapshot{}, false
	}
	return chosen.Snapshot(), true
}

// GetAllInstances returns snapshots of every instance of the named
// service regardless of health, sorted by URL. Intended for diagnostics.
func (r *Registry) GetAllInstances(serviceName string) []instance.Snapshot {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	instances, ok := r.services[serviceName]
	if !ok {
		return nil
	}

	snapshots := make([]instance.Snapshot, 0, len(instances))
	for _, inst := range instances {
		snapshots = append(snapshots, inst.Snapshot())
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].URL < snapshots[j].URL
	})
	return snapshots
}

// ServiceNames returns the names of all services with at least one
// registered instance, sorted.
func (r *Registry) ServiceNames() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subscribe registers a subscriber for the named service's lifecycle
// events.
func (r *Registry) Subscribe(serviceName string, sub Subscriber) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.subscribers[serviceName] = append(r.subscribers[serviceName], sub)
}

// Unsubscribe removes a previously registered subscriber. Unknown
// subscribers are a no-op.
func (r *Registry) Unsubscribe(serviceName string, sub Subscriber) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	subs := r.subscribers[serviceName]
	for i, s := range subs {
		if s == sub {
			r.subscribers[serviceName] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(r.subscribers[serviceName]) == 0 {
		delete(r.subscribers, serviceName)
	}
}

// lookup must be called with at least the read lock held.
func (r *Registry) lookup(serviceName, url string) *instance.Instance {
	instances, ok := r.services[serviceName]
	if !ok {
		return nil
	}
	return instances[url]
}

// notifySubscribers delivers an event to every subscriber of the
// service, after the mutation has been committed. A panicking subscriber
// is logged and does not abort delivery to the others.
func (r *Registry) notifySubscribers(serviceName string, event Event) {
	r.mutex.RLock()
	subs := make([]Subscriber, len(r.subscribers[serviceName]))
	copy(subs, r.subscribers[serviceName])
	r.mutex.RUnlock()

	for _, sub := range subs {
		r.deliver(sub, event)
	}
}

func (r *Registry) deliver(sub Subscriber, event Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Subscriber callback panicked",
				slog.String("service", event.Instance.Name),
				slog.String("event", string(event.Type)),
				slog.Any("panic", rec))
		}
	}()
	sub.OnServiceEvent(event)
}
