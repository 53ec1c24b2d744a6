// Package metrics names and emits the application's telemetry. Every emitter
// is a no-op while observability.TelemetrySystem is nil.
package metrics

import (
	"strconv"
	"time"

	"github.com/pokedexplorer/pokedex/internal/observability"
)

const (
	CacheLookupsTotal    = "pokedex_cache_lookups_total"
	CacheEvictionsTotal  = "pokedex_cache_evictions_total"
	UpstreamFetchTotal   = "pokedex_upstream_fetch_total"
	UpstreamFetchLatency = "pokedex_upstream_fetch_duration_ms"
	NameListSize         = "pokedex_name_list_size"

	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	ServerStartTime = "app_server_start_time_seconds"
)

func counter(name string, labels map[string]string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(name, 1, labels)
	}
}

func gauge(name string, value float64, labels map[string]string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(name, value, labels)
	}
}

// RecordCacheLookup counts one detail cache lookup as a hit or a miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	counter(CacheLookupsTotal, map[string]string{"result": result})
}

// RecordCacheEvictions counts entries removed to respect the size bound.
func RecordCacheEvictions(n int64) {
	for range n {
		counter(CacheEvictionsTotal, nil)
	}
}

// RecordUpstreamFetch records one upstream detail fetch, labelled by outcome
// kind ("success", "not_found", "transport", ...).
func RecordUpstreamFetch(outcome string, duration time.Duration) {
	counter(UpstreamFetchTotal, map[string]string{"outcome": outcome})
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(UpstreamFetchLatency, duration, map[string]string{"outcome": outcome})
	}
}

// SetNameListSize publishes the number of names served by the list endpoint.
func SetNameListSize(n int) {
	gauge(NameListSize, float64(n), nil)
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	counter(HealthCheckTotal, map[string]string{"check": checkName, "status": status})
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(HealthCheckDuration, duration, map[string]string{"check": checkName})
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	gauge(ServerStartTime, float64(timestamp), nil)
}

func statusLabel(status int) string {
	return strconv.Itoa(status)
}
