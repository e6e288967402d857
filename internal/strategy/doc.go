// Package strategy defines the instance selection interface used by the
// service registry and implements the supported algorithms:
//
//   - Round Robin: sequential rotation across candidate instances,
//     driven by a monotonically incrementing counter
//   - Random: uniform random selection
//
// Strategies only see the candidate list the registry already filtered
// down to healthy, heartbeat-fresh instances.
package strategy
