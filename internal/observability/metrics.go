package observability

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

var (
	// TelemetrySystem receives every emitter in internal/metrics; nil turns
	// them into no-ops.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves the scrape endpoint for `pokedex serve`.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// InitMetrics starts the Prometheus exporter on port (0 picks a free one)
// with metric names prefixed by namespace, or by service when namespace is
// blank.
func InitMetrics(service string, port int, namespace string) error {
	if strings.TrimSpace(namespace) == "" {
		namespace = service
	}
	port = max(port, 0)

	exporter := exporters.NewPrometheusExporter(namespace, ":"+strconv.Itoa(port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter: %w", err)
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		_ = exporter.Stop()
		return fmt.Errorf("create telemetry system: %w", err)
	}

	PrometheusExporter, TelemetrySystem = exporter, sys
	metricsPort = boundPort(exporter.GetAddr(), port)
	return nil
}

// StopMetrics shuts the exporter down and disables telemetry.
func StopMetrics() error {
	exporter := PrometheusExporter
	PrometheusExporter, TelemetrySystem, metricsPort = nil, nil, 0
	if exporter == nil {
		return nil
	}
	return exporter.Stop()
}

// GetMetricsPort returns the exporter's listening port, or 0 when it is not
// running.
func GetMetricsPort() int {
	return metricsPort
}

// boundPort reads the real port from addr, falling back to requested and
// then to 9090.
func boundPort(addr string, requested int) int {
	if _, portStr, err := net.SplitHostPort(addr); err == nil {
		if p, err := strconv.Atoi(portStr); err == nil && p > 0 {
			return p
		}
	}
	if requested > 0 {
		return requested
	}
	return 9090
}
