package registry

import (
	"github.com/angeloszaimis/service-mesh/internal/instance"
)

// EventType identifies an instance lifecycle event.
type EventType string

const (
	EventRegister     EventType = "register"
	EventDeregister   EventType = "deregister"
	EventStatusChange EventType = "status_change"
)

// Event describes one lifecycle change of a service instance. The
// snapshot reflects the instance state after the mutation was committed.
type Event struct {
	Type     EventType
	Instance instance.Snapshot
}

// Subscriber receives lifecycle events for a service it subscribed to.
// Implementations must not block; a panicking subscriber is isolated and
// logged without affecting other subscribers or the mutating operation.
type Subscriber interface {
	OnServiceEvent(event Event)
}
