package metrics

import (
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mutex         sync.RWMutex
	requests      map[string]int64
	failures      map[string]int64
	exhausted     map[string]int64
	responseTimes map[string][]time.Duration
	instances     map[string]map[string]bool
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests int64                     `json:"total_requests"`
	TotalFailures int64                     `json:"total_failures"`
	Uptime        time.Duration             `json:"uptime"`
	Services      map[string]ServiceMetrics `json:"services"`
}

type ServiceMetrics struct {
	Requests         int64           `json:"requests"`
	Failures         int64           `json:"failures"`
	RetriesExhausted int64           `json:"retries_exhausted"`
	Instances        map[string]bool `json:"instances"`
	AvgResponse      time.Duration   `json:"avg_response"`
	P50Response      time.Duration   `json:"p50_response"`
	P95Response      time.Duration   `json:"p95_response"`
	P99Response      time.Duration   `json:"p99_response"`
}

func (m *Metrics) IncrementRequests(service string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests[service]++
}

func (m *Metrics) IncrementFailures(service string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.failures[service]++
}

func (m *Metrics) IncrementExhausted(service string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.exhausted[service]++
}

func (m *Metrics) RecordResponse(service string, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.responseTimes[service] = append(m.responseTimes[service], duration)

	if len(m.responseTimes[service]) > 1000 {
		m.responseTimes[service] = m.responseTimes[service][1:]
	}
}

func (m *Metrics) UpdateInstance(service, url string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.instances[service] == nil {
		m.instances[service] = make(map[string]bool)
	}
	m.instances[service][url] = healthy
}

func (m *Metrics) RemoveInstance(service, url string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.instances[service], url)
	if len(m.instances[service]) == 0 {
		delete(m.instances, service)
	}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:   time.Since(m.startTime),
		Services: make(map[string]ServiceMetrics),
	}

	// Collect all service names seen by any counter
	allServices := make(map[string]bool)
	for service := range m.requests {
		allServices[service] = true
	}
	for service := range m.failures {
		allServices[service] = true
	}
	for service := range m.exhausted {
		allServices[service] = true
	}
	for service := range m.instances {
		allServices[service] = true
	}

	for service := range allServices {
		snap.TotalRequests += m.requests[service]
		snap.TotalFailures += m.failures[service]

		sm := ServiceMetrics{
			Requests:         m.requests[service],
			Failures:         m.failures[service],
			RetriesExhausted: m.exhausted[service],
		}

		if insts := m.instances[service]; len(insts) > 0 {
			sm.Instances = make(map[string]bool, len(insts))
			for url, healthy := range insts {
				sm.Instances[url] = healthy
			}
		}

		durations := m.responseTimes[service]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			sm.AvgResponse = average(sorted)
			sm.P50Response = percentile(sorted, 0.50)
			sm.P95Response = percentile(sorted, 0.95)
			sm.P99Response = percentile(sorted, 0.99)
		}

		snap.Services[service] = sm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:      make(map[string]int64),
		failures:      make(map[string]int64),
		exhausted:     make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		instances:     make(map[string]map[string]bool),
		startTime:     time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
