package instance

import (
	"sync"
	"time"
)

// Status is the health state of a service instance.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Instance represents one addressable endpoint backing a logical service,
// with health status, heartbeat tracking and opaque metadata.
//
// Status and heartbeat are owned by the registry; other components read
// instances through snapshots and never mutate them directly.
type Instance struct {
	mutex         sync.Mutex
	name          string
	url           string
	status        Status
	lastHeartbeat time.Time
	metadata      map[string]string
}

// Snapshot is an immutable copy of an instance, safe to hand to
// subscribers and callers outside the registry lock.
type Snapshot struct {
	Name          string            `json:"name"`
	URL           string            `json:"url"`
	Status        Status            `json:"status"`
	LastHeartbeat time.Time         `json:"last_heartbeat"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// New creates a new Instance for the given service name and URL.
// The instance starts healthy with its heartbeat set to now.
func New(name, url string, metadata map[string]string) *Instance {
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}

	return &Instance{
		name:          name,
		url:           url,
		status:        StatusHealthy,
		lastHeartbeat: time.Now(),
		metadata:      md,
	}
}

// Name returns the logical service name this instance belongs to.
func (i *Instance) Name() string {
	return i.name
}

// URL returns the instance's endpoint address.
func (i *Instance) URL() string {
	return i.url
}

// Status returns the instance's current health status.
func (i *Instance) Status() Status {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	return i.status
}

// IsHealthy returns true if the instance is currently marked healthy.
func (i *Instance) IsHealthy() bool {
	return i.Status() == StatusHealthy
}

// LastHeartbeat returns the time of the last liveness signal.
func (i *Instance) LastHeartbeat() time.Time {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	return i.lastHeartbeat
}

// Heartbeat refreshes the liveness timestamp and re-promotes the
// instance to healthy.
func (i *Instance) Heartbeat() {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	i.lastHeartbeat = time.Now()
	i.status = StatusHealthy
}

// SetStatus updates the instance's health status.
// Returns true if the status changed, false if it was already in that state.
func (i *Instance) SetStatus(status Status) (changed bool) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if i.status == status {
		return false
	}

	i.status = status
	return true
}

// Fresh reports whether the last heartbeat is within the given timeout.
func (i *Instance) Fresh(timeout time.Duration) bool {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	return time.Since(i.lastHeartbeat) <= timeout
}

// Snapshot returns an immutable copy of the instance's current state.
func (i *Instance) Snapshot() Snapshot {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	md := make(map[string]string, len(i.metadata))
	for k, v := range i.metadata {
		md[k] = v
	}

	return Snapshot{
		Name:          i.name,
		URL:           i.url,
		Status:        i.status,
		LastHeartbeat: i.lastHeartbeat,
		Metadata:      md,
	}
}
