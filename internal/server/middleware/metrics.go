package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pokedexplorer/pokedex/internal/observability"
	"go.uber.org/zap"
)

// cacheHeader matches the header the detail handler sets.
const cacheHeader = "X-Cache"

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += int64(n)
	return n, err
}

// RouteLabel keeps metric labels bounded: every species name collapses into
// the detail pattern.
func RouteLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "":
		return "/"
	case path == "/api/pokemon":
		return "/api/pokemon"
	case strings.HasPrefix(path, "/api/pokemon/"):
		return "/api/pokemon/{name}"
	case path == "/health" || strings.HasPrefix(path, "/health/"):
		return "/health/*"
	case strings.HasPrefix(path, "/admin/"):
		return "/admin/*"
	case path == "/version", path == "/metrics":
		return path
	}
	return "/unknown"
}

// cacheOutcome normalizes the detail handler's cache header to hit, miss or "".
func cacheOutcome(h http.Header) string {
	switch strings.ToUpper(h.Get(cacheHeader)) {
	case "HIT":
		return "hit"
	case "MISS":
		return "miss"
	}
	return ""
}

func contentLength(r *http.Request) int64 {
	if r.ContentLength > 0 {
		return r.ContentLength
	}
	size, err := strconv.ParseInt(r.Header.Get("Content-Length"), 10, 64)
	if err != nil {
		return 0
	}
	return size
}

// RequestMetrics emits request counters, latency and sizes for every route.
// Detail responses that report a cache outcome carry it as a latency label.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tel := observability.TelemetrySystem
		if tel == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := RouteLabel(r)
		status := strconv.Itoa(rec.status)
		labels := map[string]string{"method": r.Method, "endpoint": route, "status": status}
		sizeLabels := map[string]string{"method": r.Method, "endpoint": route}
		reqBytes := contentLength(r)
		outcome := cacheOutcome(rec.Header())

		_ = tel.Counter("http_requests_total", 1, labels)
		latencyLabels := labels
		if outcome != "" {
			latencyLabels = map[string]string{"method": r.Method, "endpoint": route, "status": status, "cache": outcome}
		}
		_ = tel.Histogram("http_request_duration_ms", elapsed, latencyLabels)
		_ = tel.Gauge("http_request_size_bytes", float64(reqBytes), sizeLabels)
		_ = tel.Gauge("http_response_size_bytes", float64(rec.bytes), sizeLabels)

		if rec.status >= http.StatusBadRequest {
			kind := "client_error"
			if rec.status >= http.StatusInternalServerError {
				kind = "server_error"
			}
			_ = tel.Counter("http_errors_total", 1, map[string]string{
				"method":     r.Method,
				"endpoint":   route,
				"status":     status,
				"error_type": kind,
			})
		}

		observability.ServerLog().Info("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("endpoint", route),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
			zap.Int64("request_size", reqBytes),
			zap.Int64("response_size", rec.bytes),
			zap.String("cache", outcome),
			zap.String("requestID", GetRequestID(r.Context())),
		)
	})
}
