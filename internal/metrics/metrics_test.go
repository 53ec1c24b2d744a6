package metrics

import (
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokedexplorer/pokedex/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })
	return collector
}

func TestCacheAndUpstreamMetrics(t *testing.T) {
	collector := setupTelemetry(t)

	RecordCacheLookup(true)
	RecordCacheLookup(false)
	RecordCacheEvictions(3)
	RecordCacheEvictions(0)
	RecordUpstreamFetch("success", 25*time.Millisecond)
	SetNameListSize(1025)

	assert.Equal(t, 2, collector.CountMetricsByName(CacheLookupsTotal))
	assert.Equal(t, 3, collector.CountMetricsByName(CacheEvictionsTotal))
	assert.Equal(t, 1, collector.CountMetricsByName(UpstreamFetchTotal))
	assert.Equal(t, 1, collector.CountMetricsByName(UpstreamFetchLatency))
	assert.Equal(t, 1, collector.CountMetricsByName(NameListSize))
}

func TestErrorMetrics(t *testing.T) {
	collector := setupTelemetry(t)

	RecordError("NOT_FOUND", 404)
	RecordErrorByEndpoint("/api/pokemon/missingno", "NOT_FOUND")
	RecordPanic()

	assert.Equal(t, 1, collector.CountMetricsByName(ErrorsTotalName))
	assert.Equal(t, 1, collector.CountMetricsByName(ErrorsByEndpointName))
	assert.Equal(t, 1, collector.CountMetricsByName(PanicsTotalName))
}

func TestMetricsWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = original })

	RecordCacheLookup(true)
	RecordUpstreamFetch("transport", time.Second)
	RecordHealthCheck("store", false, time.Millisecond)
}
