package circuitbreaker

import (
	"errors"
	"fmt"
)

// ErrOpen is the sentinel cause carried by rejections from an open
// breaker. Test for it with errors.Is.
var ErrOpen = errors.New("circuit breaker is open")

// Error is returned by Call for both open-circuit rejections and wrapped
// operation failures. It carries the breaker name, the state at the time
// of the error, a stats snapshot and the original cause.
type Error struct {
	Circuit string
	State   State
	Stats   Stats
	Cause   error
}

func (e *Error) Error() string {
	if errors.Is(e.Cause, ErrOpen) {
		return fmt.Sprintf("circuit %s is %s, request rejected (failures %d/%d calls)",
			e.Circuit, e.State, e.Stats.TotalFailures, e.Stats.TotalCalls)
	}
	return fmt.Sprintf("circuit %s call failed: %v", e.Circuit, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
