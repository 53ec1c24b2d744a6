package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pokedexplorer/pokedex/internal/config"
	"github.com/pokedexplorer/pokedex/internal/core/store"
	apperrors "github.com/pokedexplorer/pokedex/internal/errors"
	"github.com/pokedexplorer/pokedex/internal/metrics"
	"github.com/pokedexplorer/pokedex/internal/observability"
	"github.com/pokedexplorer/pokedex/internal/server"
	"github.com/pokedexplorer/pokedex/internal/server/handlers"
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return apperrors.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// identityHealthChecker validates app identity metadata
type identityHealthChecker struct {
	binaryName string
	envPrefix  string
	configName string
}

func (i identityHealthChecker) CheckHealth(ctx context.Context) error {
	switch {
	case i.binaryName == "":
		return apperrors.NewInternalError("app identity missing binary name")
	case i.envPrefix == "":
		return apperrors.NewInternalError("app identity missing env prefix")
	case i.configName == "":
		return apperrors.NewInternalError("app identity missing config name")
	}
	return nil
}

func storeHealthChecker(db *store.Store) handlers.CheckerFunc {
	return func(ctx context.Context) error {
		if err := db.DB.PingContext(ctx); err != nil {
			return apperrors.WrapDatabaseError(ctx, err, "cache store unreachable")
		}
		return nil
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the caching detail proxy",
	Long: `Start the HTTP proxy that serves detail records at /api/pokemon/{name}
and the name list at /api/pokemon. Successful upstream responses are cached
in the local store; concurrent misses for one name share a single upstream
request.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (log level and cache policy)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "server host (overrides server.host)")
	serveCmd.Flags().IntP("port", "p", 0, "server port (overrides server.port)")
}

func serveOverrides(cmd *cobra.Command) map[string]any {
	serverOverrides := map[string]any{}
	if cmd.Flags().Changed("host") {
		host, _ := cmd.Flags().GetString("host")
		serverOverrides["host"] = host
	}
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		serverOverrides["port"] = port
	}
	if len(serverOverrides) == 0 {
		return nil
	}
	return map[string]any{"server": serverOverrides}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	overrides := serveOverrides(cmd)
	cfg, err := loadConfig(overrides)
	if err != nil {
		return err
	}

	identity := GetAppIdentity()
	binaryName, namespace := "pokedex", "pokedex"
	if identity != nil {
		binaryName, namespace = identity.BinaryName, identity.TelemetryNamespace()
	}

	if err := observability.InitServerLogger(binaryName, serverLogOptions(cfg, namespace)); err != nil {
		return apperrors.Wrap(ctx, apperrors.CodeInvalidInput, err, "logging configuration invalid")
	}
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(binaryName, cfg.Metrics.Port, namespace); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return apperrors.Wrap(ctx, apperrors.CodeInternal, err, "metrics initialization failed")
		}
	}

	db := optionalStore(ctx, cfg, observability.ServerLog())
	if db != nil {
		defer db.Close() // nolint:errcheck
	}

	limiter := newLimiter(db, cfg)
	pokemon := &handlers.Pokemon{
		Upstream: newUpstreamClient(cfg, limiter, observability.ServerLog()),
		Names:    newNameSource(cfg.Upstream.ListURL, cfg.Upstream.Timeout, cfg, db, observability.ServerLog()),
		Logger:   observability.ServerLog(),
	}
	applyCachePolicy(pokemon, cfg, db)

	hm := handlers.NewHealthManager(versionInfo.Version)
	if identity != nil {
		handlers.SetAppIdentity(identity)
	}
	// With health.enabled off the probes only report liveness.
	if cfg.Health.Enabled {
		registerHealthCheckers(hm, cfg, identity, db)
	}

	srv := server.New(server.Options{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
		Pokemon:         pokemon,
		Health:          hm,
	})

	logger.Info("Initializing server",
		zap.String("service", binaryName),
		zap.String("namespace", namespace),
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("upstream", cfg.Upstream.BaseURL),
		zap.Bool("cache", pokemon.Cache != nil),
		zap.Int("metrics_port", observability.GetMetricsPort()))

	// Registered handlers run LIFO: the HTTP server stops before the logger flushes.
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, srv.ShutdownTimeout())
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return apperrors.Wrap(ctx, apperrors.CodeInternal, err, "server shutdown failed")
		}
		logger.Info("HTTP server stopped gracefully")
		if err := observability.StopMetrics(); err != nil {
			logger.Warn("Metrics exporter did not stop cleanly", zap.Error(err))
		}
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: reloading config")
		initConfig()
		reloaded, err := loadConfig(overrides)
		if err != nil {
			logger.Error("Config reload failed", zap.Error(err))
			return apperrors.Wrap(ctx, apperrors.CodeInvalidInput, err, "config reload failed")
		}
		if err := observability.InitServerLogger(binaryName, serverLogOptions(reloaded, namespace)); err != nil {
			logger.Error("Logger reload failed, keeping previous settings", zap.Error(err))
		}
		observability.ServerLogger.Info("Configuration reloaded",
			zap.String("log_level", reloaded.Logging.Level),
			zap.Duration("cache_ttl", reloaded.Cache.TTL),
			zap.Int("cache_max_entries", reloaded.Cache.MaxEntries))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	metrics.SetServerStartTime(time.Now().Unix())

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return apperrors.Wrap(ctx, apperrors.CodeInternal, err, "server error")
	}
	return nil
}

// applyCachePolicy attaches the store as the proxy cache when caching is on.
func applyCachePolicy(pokemon *handlers.Pokemon, cfg *config.Config, db *store.Store) {
	if db == nil || !cfg.Cache.Enabled {
		return
	}
	pokemon.Cache = db
	pokemon.TTL = cfg.Cache.TTL
	pokemon.MaxEntries = cfg.Cache.MaxEntries
}

func registerHealthCheckers(hm *handlers.HealthManager, cfg *config.Config, identity *appidentity.Identity, db *store.Store) {
	if cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	}
	if identity != nil {
		hm.RegisterChecker("app_identity", identityHealthChecker{
			binaryName: identity.BinaryName,
			envPrefix:  identity.EnvPrefix,
			configName: identity.ConfigName,
		})
	}
	if db != nil {
		hm.RegisterOptional("store", storeHealthChecker(db))
	}
}

func serverLogOptions(cfg *config.Config, namespace string) observability.ServerLogOptions {
	return observability.ServerLogOptions{
		Level:     cfg.Logging.Level,
		Profile:   cfg.Logging.Profile,
		Namespace: namespace,
	}
}
