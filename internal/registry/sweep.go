package registry

import (
	"log/slog"
	"time"

	"github.com/angeloszaimis/service-mesh/internal/instance"
)

// sweepLoop periodically demotes instances whose heartbeat has lapsed.
// The sweep only flips status; instances are removed by Deregister alone.
func (r *Registry) sweepLoop(cancel <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	type demotion struct {
		service string
		event   Event
	}

	var demoted []demotion

	r.mutex.RLock()
	for serviceName, instances := range r.services {
		for _, inst := range instances {
			if inst.Fresh(r.config.HeartbeatTimeout) {
				continue
			}
			if !inst.SetStatus(instance.StatusUnhealthy) {
				continue
			}
			demoted = append(demoted, demotion{
				service: serviceName,
				event:   Event{Type: EventStatusChange, Instance: inst.Snapshot()},
			})
		}
	}
	r.mutex.RUnlock()

	for _, d := range demoted {
		r.logger.Warn("Instance missed heartbeat",
			slog.String("service", d.service),
			slog.String("url", d.event.Instance.URL),
			slog.Time("last_heartbeat", d.event.Instance.LastHeartbeat))

		r.notifySubscribers(d.service, d.event)
	}
}
