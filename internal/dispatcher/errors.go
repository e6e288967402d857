package dispatcher

import "fmt"

// ServiceUnavailableError is returned when no healthy instance exists
// for a service name. No transport attempt is made.
type ServiceUnavailableError struct {
	Service string
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("no healthy instances available for service %q", e.Service)
}

// RetriesExhaustedError is returned after every transport attempt within
// one Send failed. It carries the final underlying error, and the
// instance it was issued against has been marked unhealthy.
type RetriesExhaustedError struct {
	Service  string
	URL      string
	Attempts int
	Cause    error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("request to service %q at %s failed after %d attempts: %v",
		e.Service, e.URL, e.Attempts, e.Cause)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Cause
}
