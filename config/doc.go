// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including registry liveness settings, circuit breaker thresholds, dispatcher
// retry policy and statically configured service endpoints.
package config
