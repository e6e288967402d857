package circuitbreaker

import "time"

// StatsSnapshot is the read-only observability projection of a breaker:
// name, state, counters and configured thresholds.
type StatsSnapshot struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Stats struct {
		TotalCalls          int           `json:"total_calls"`
		TotalFailures       int           `json:"total_failures"`
		CurrentFailureCount int           `json:"current_failure_count"`
		CurrentSuccessCount int           `json:"current_success_count"`
		AvgResponseTime     time.Duration `json:"avg_response_time"`
		LastFailure         time.Time     `json:"last_failure"`
		LastSuccess         time.Time     `json:"last_success"`
	} `json:"stats"`
	Config struct {
		FailureThreshold int           `json:"failure_threshold"`
		RecoveryTimeout  time.Duration `json:"recovery_timeout"`
		HalfOpenTimeout  time.Duration `json:"half_open_timeout"`
		MinThroughput    int           `json:"min_throughput"`
	} `json:"config"`
}

// GetStats returns the breaker's observability snapshot.
func (cb *CircuitBreaker) GetStats() StatsSnapshot {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	var snap StatsSnapshot
	snap.Name = cb.name
	snap.State = cb.state.String()
	snap.Stats.TotalCalls = cb.stats.TotalCalls
	snap.Stats.TotalFailures = cb.stats.TotalFailures
	snap.Stats.CurrentFailureCount = cb.stats.FailureCount
	snap.Stats.CurrentSuccessCount = cb.stats.SuccessCount
	snap.Stats.AvgResponseTime = cb.stats.AvgResponseTime
	snap.Stats.LastFailure = cb.stats.LastFailureTime
	snap.Stats.LastSuccess = cb.stats.LastSuccessTime
	snap.Config.FailureThreshold = cb.config.FailureThreshold
	snap.Config.RecoveryTimeout = cb.config.RecoveryTimeout
	snap.Config.HalfOpenTimeout = cb.config.HalfOpenTimeout
	snap.Config.MinThroughput = cb.config.MinThroughput
	return snap
}
