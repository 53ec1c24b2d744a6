package integration

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokedexplorer/pokedex/internal/core/detail"
	"github.com/pokedexplorer/pokedex/internal/core/store"
	"github.com/pokedexplorer/pokedex/internal/observability"
	"github.com/pokedexplorer/pokedex/internal/server"
	"github.com/pokedexplorer/pokedex/internal/server/handlers"
)

// memoryCache is a map-backed detail cache for tests that cannot link libsql.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func (m *memoryCache) GetDetail(_ context.Context, name string) (*store.DetailEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.entries[name]
	if !ok {
		return nil, nil
	}
	return &store.DetailEntry{Name: name, Body: body, StatusCode: http.StatusOK}, nil
}

func (m *memoryCache) SetDetail(_ context.Context, name string, body []byte, _ int, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string][]byte{}
	}
	m.entries[name] = body
	return nil
}

func (m *memoryCache) TrimDetails(context.Context, int) (int64, error) { return 0, nil }

func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") || strings.Contains(msg, "not permitted")
}

// startMetrics brings up the exporter and tears global telemetry down after
// the test. Sandboxes that refuse binds skip instead of failing.
func startMetrics(t *testing.T) {
	t.Helper()
	observability.InitCLILogger("test", false)
	require.NoError(t, observability.InitServerLogger("test", observability.ServerLogOptions{Level: "info"}))

	if err := observability.InitMetrics("pokedex-test", 0, "pokedex_test"); err != nil {
		if isPermissionError(err) {
			t.Skipf("metrics exporter cannot bind: %v", err)
		}
		require.NoError(t, err)
	}
	t.Cleanup(func() { _ = observability.StopMetrics() })
}

func listenLoopback(t *testing.T, h http.Handler) *httptest.Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("loopback listen refused: %v", err)
		}
		require.NoError(t, err)
	}
	ts := &httptest.Server{Listener: ln, Config: &http.Server{Handler: h}}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

// startProxy runs the detail proxy against a stub upstream that only knows
// a handful of species.
func startProxy(t *testing.T) *httptest.Server {
	t.Helper()
	known := map[string]string{
		"bulbasaur":  `{"id":1,"name":"bulbasaur"}`,
		"charmander": `{"id":4,"name":"charmander"}`,
		"squirtle":   `{"id":7,"name":"squirtle"}`,
	}
	up := chi.NewRouter()
	up.Get("/api/v2/pokemon/{name}", func(w http.ResponseWriter, r *http.Request) {
		body, ok := known[chi.URLParam(r, "name")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	})
	upstream := listenLoopback(t, up)

	srv := server.New(server.Options{
		Host: "127.0.0.1",
		Pokemon: &handlers.Pokemon{
			Upstream: &detail.Client{BaseURL: upstream.URL, PathPrefix: "/api/v2/pokemon"},
			Cache:    &memoryCache{},
			TTL:      time.Hour,
		},
	})
	return listenLoopback(t, srv.Handler())
}

func scrape(t *testing.T, client *http.Client, base string) (string, *http.Response) {
	t.Helper()
	resp, err := client.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	return string(body), resp
}

func TestMetricsReflectProxyTraffic(t *testing.T) {
	startMetrics(t)
	ts := startProxy(t)
	client := ts.Client()

	paths := []string{
		"/api/pokemon/bulbasaur",
		"/api/pokemon/charmander",
		"/api/pokemon/squirtle",
		"/api/pokemon/missingno",
		"/health/live",
	}

	var wg sync.WaitGroup
	for worker := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 10 {
				resp, err := client.Get(ts.URL + paths[(worker+i)%len(paths)])
				if err == nil {
					_, _ = io.Copy(io.Discard, resp.Body)
					_ = resp.Body.Close()
				}
			}
		}()
	}
	wg.Wait()

	text, resp := scrape(t, client, ts.URL)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, series := range []string{
		"http_requests_total",
		"http_request_duration_ms",
		"http_errors_total",
		"pokedex_cache_lookups_total",
		"pokedex_upstream_fetch_total",
	} {
		assert.Contains(t, text, series)
	}
	assert.Contains(t, text, `endpoint="/api/pokemon/{name}"`)
	assert.NotContains(t, text, "bulbasaur", "species names must not become label values")
}

func TestMetricsExposePrometheusText(t *testing.T) {
	startMetrics(t)
	ts := startProxy(t)
	client := ts.Client()

	resp, err := client.Get(ts.URL + "/api/pokemon/squirtle")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	text, resp := scrape(t, client, ts.URL)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain; version=0.0.4"),
		"content type %q", resp.Header.Get("Content-Type"))

	samples := 0
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		require.GreaterOrEqual(t, len(strings.Fields(line)), 2, "malformed sample %q", line)
		samples++
	}
	assert.Greater(t, samples, 0)
}

func TestMetricsUnavailableWithoutExporter(t *testing.T) {
	require.NoError(t, observability.InitServerLogger("test", observability.ServerLogOptions{Level: "info"}))

	prevExporter, prevTelemetry := observability.PrometheusExporter, observability.TelemetrySystem
	observability.PrometheusExporter = nil
	observability.TelemetrySystem = nil
	t.Cleanup(func() {
		observability.PrometheusExporter = prevExporter
		observability.TelemetrySystem = prevTelemetry
	})
	t.Setenv("POKEDEX_METRICS_ENABLED", "false")

	ts := startProxy(t)
	client := ts.Client()

	resp, err := client.Get(ts.URL + "/api/pokemon/bulbasaur")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, resp = scrape(t, client, ts.URL)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
