// Package circuitbreaker implements the circuit breaker pattern for
// remote service calls.
//
// A circuit breaker prevents cascading failures by temporarily rejecting
// requests to a failing service. It has three states:
//
//   - CLOSED: Normal operation, calls pass through
//   - OPEN: Service failing, calls rejected immediately
//   - HALF_OPEN: Probing whether the service recovered
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(circuitbreaker.DefaultConfig(), log)
//	cb := registry.GetBreaker("emotion")
//	err := cb.Call(ctx, func(ctx context.Context) error {
//	    // Make request...
//	    return err
//	})
//	if errors.Is(err, circuitbreaker.ErrOpen) {
//	    // Rejected without calling the service.
//	}
package circuitbreaker
