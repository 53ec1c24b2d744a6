package server

import (
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pokedexplorer/pokedex/internal/appid"
	"github.com/pokedexplorer/pokedex/internal/observability"
	"github.com/pokedexplorer/pokedex/internal/server/handlers"
)

const adminSignalPath = "/admin/signal"

func (s *Server) registerRoutes() {
	health := s.opts.Health
	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)
	s.router.Get("/health/startup", health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	s.router.Route("/api/pokemon", func(r chi.Router) {
		r.Get("/", s.opts.Pokemon.List)
		r.Get("/{name}", s.opts.Pokemon.Detail)
	})

	s.registerAdminEndpoint()
}

// registerAdminEndpoint mounts the signal endpoint when POKEDEX_ADMIN_TOKEN is set.
func (s *Server) registerAdminEndpoint() {
	tokenVar := appid.EnvPrefix + "ADMIN_TOKEN"
	adminToken := os.Getenv(tokenVar)
	logger := observability.ServerLog()

	if adminToken == "" {
		logger.Debug("Admin signal endpoint disabled (no " + tokenVar + " set)")
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10, // per minute
		RateBurst: 5,
	})
	s.router.Post(adminSignalPath, handler.ServeHTTP)

	logger.Info("Admin signal endpoint enabled",
		zap.String("path", adminSignalPath),
		zap.String("rate_limit", "10/min, burst 5"))
	logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
}
