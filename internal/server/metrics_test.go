package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry/exporters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokedexplorer/pokedex/internal/observability"
)

type scrapeFunc func(*http.Request) (*http.Response, error)

func (f scrapeFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func stubScrape(t *testing.T, fn scrapeFunc) {
	t.Helper()
	prevClient := metricsProxyClient
	metricsProxyClient = &http.Client{Transport: fn}
	observability.PrometheusExporter = exporters.NewPrometheusExporter("pokedex_test", ":9090")
	t.Cleanup(func() {
		metricsProxyClient = prevClient
		observability.PrometheusExporter = nil
	})
}

func TestMetricsHandlerRelaysExporterBody(t *testing.T) {
	var seenAccept string
	stubScrape(t, func(req *http.Request) (*http.Response, error) {
		seenAccept = req.Header.Get("Accept")
		resp := &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("pokedex_cache_lookups_total{result=\"hit\"} 3\n")),
		}
		resp.Header.Set("Connection", "keep-alive")
		return resp, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", "text/plain")
	rec := httptest.NewRecorder()
	MetricsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain", seenAccept)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Empty(t, rec.Header().Get("Connection"))
	assert.Contains(t, rec.Body.String(), "pokedex_cache_lookups_total")
}

func TestMetricsHandlerExporterUnreachable(t *testing.T) {
	stubScrape(t, func(*http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.GreaterOrEqual(t, rec.Code, http.StatusInternalServerError)
}

func TestMetricsHandlerWithoutExporter(t *testing.T) {
	observability.PrometheusExporter = nil

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
}
