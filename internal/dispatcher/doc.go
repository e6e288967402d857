// Package dispatcher ties service discovery, circuit breaking and retry
// policy together for request/response style calls. It is the only
// component application code invokes directly:
//
//	d := dispatcher.New(reg, nil, dispatcher.Config{}, endpoints, log)
//	res, err := d.Send(ctx, "emotion", "/sentiment", "POST", payload)
//
// Send selects a healthy instance through the registry, runs the
// transport call inside the service's circuit breaker with bounded
// retries, refreshes the instance heartbeat on success and marks the
// instance unhealthy when retries are exhausted.
package dispatcher
