package cmd

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pokedexplorer/pokedex/internal/config"
	"github.com/pokedexplorer/pokedex/internal/core"
	"github.com/pokedexplorer/pokedex/internal/core/audio"
	"github.com/pokedexplorer/pokedex/internal/core/detail"
	"github.com/pokedexplorer/pokedex/internal/core/engine"
	"github.com/pokedexplorer/pokedex/internal/core/names"
	"github.com/pokedexplorer/pokedex/internal/core/store"
)

// openStore opens and migrates the cache database.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// optionalStore opens the store for features that work without it. Failures
// are logged and yield nil.
func optionalStore(ctx context.Context, cfg *config.Config, logger core.Logger) *store.Store {
	db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Warn("cache store unavailable", zap.Error(err))
		return nil
	}
	return db
}

func newLimiter(db *store.Store, cfg *config.Config) *engine.RateLimiter {
	if db == nil {
		return nil
	}
	limiter := &engine.RateLimiter{Store: db}
	limiter.ApplyOverrides(cfg.RateLimitOverrides())
	limiter.ApplySafetyMargin(cfg.RateLimitMargin)
	return limiter
}

// newDetailClient returns the client the lookup surfaces use.
func newDetailClient(cfg *config.Config, limiter *engine.RateLimiter, logger core.Logger) *detail.Client {
	return &detail.Client{
		BaseURL:    cfg.Detail.BaseURL,
		PathPrefix: cfg.Detail.PathPrefix,
		Client:     &http.Client{Timeout: cfg.Detail.Timeout},
		Limiter:    limiter,
		Logger:     logger,
	}
}

// newUpstreamClient returns the client the proxy forwards misses with.
func newUpstreamClient(cfg *config.Config, limiter *engine.RateLimiter, logger core.Logger) *detail.Client {
	return &detail.Client{
		BaseURL:    cfg.Upstream.BaseURL,
		PathPrefix: cfg.Upstream.PathPrefix,
		Client:     &http.Client{Timeout: cfg.Upstream.Timeout},
		Limiter:    limiter,
		Logger:     logger,
	}
}

// newNameSource reads the list over HTTP, through the store when one is
// given and caching is enabled.
func newNameSource(url string, timeout time.Duration, cfg *config.Config, db *store.Store, logger core.Logger) names.Source {
	source := &names.HTTPSource{URL: url, Client: &http.Client{Timeout: timeout}}
	if db == nil || !cfg.Cache.Enabled {
		return source
	}
	return &names.CachedSource{
		Cache:    db,
		Upstream: source,
		Key:      url,
		TTL:      cfg.Cache.NamesTTL,
		Logger:   logger,
	}
}

// newPlayer returns the cry player, or nil when audio is disabled.
func newPlayer(cfg *config.Config, logger core.Logger) *audio.Player {
	if !cfg.Audio.Enabled {
		return nil
	}
	tempDir := filepath.Join(config.DefaultCacheDir(), "cries")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		tempDir = ""
	}
	return audio.NewPlayer(&audio.ExecBackend{Command: cfg.Audio.Command, TempDir: tempDir}, logger)
}

// soundPlayer converts a possibly nil *audio.Player into an interface that
// is nil too.
func soundPlayer(p *audio.Player) engine.SoundPlayer {
	if p == nil {
		return nil
	}
	return p
}

func normalizeArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// clientNameSource is the name list source of the CLI and TUI surfaces.
func clientNameSource(cfg *config.Config, db *store.Store, logger core.Logger) names.Source {
	if !cfg.Names.UseCache {
		db = nil
	}
	return newNameSource(cfg.Names.URL, cfg.Names.Timeout, cfg, db, logger)
}
