// Package instance defines the service instance model: one addressable
// endpoint of a logical service, with health status, heartbeat timestamp
// and metadata. Instances are mutated only by the registry; everyone else
// reads them through snapshots.
package instance
