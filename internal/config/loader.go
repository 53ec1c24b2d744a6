// Package config provides centralized configuration management for pokedex.
// Defaults are registered on a viper instance, the YAML config file and
// POKEDEX_* environment variables are layered on top, and the merged settings
// are decoded into Config with mapstructure.
package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/pokedexplorer/pokedex/internal/appid"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvVarSpec maps a short environment variable onto a config path.
type EnvVarSpec = gfconfig.EnvVarSpec

const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "30m")
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.names_ttl", "24h")

	v.SetDefault("upstream.base_url", "https://pokeapi.co")
	v.SetDefault("upstream.path_prefix", "/api/v2/pokemon")
	v.SetDefault("upstream.list_url", "https://pokeapi.co/api/v2/pokemon?limit=1025")
	v.SetDefault("upstream.timeout", "10s")

	v.SetDefault("detail.base_url", "http://localhost:8080")
	v.SetDefault("detail.path_prefix", "/api/pokemon")
	v.SetDefault("detail.timeout", "10s")

	v.SetDefault("names.url", "https://pokeapi.co/api/v2/pokemon?limit=1025")
	v.SetDefault("names.timeout", "15s")
	v.SetDefault("names.use_cache", false)

	v.SetDefault("audio.enabled", true)
	v.SetDefault("audio.command", []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"})

	v.SetDefault("ui.dark_mode", false)
	v.SetDefault("ui.log_file", filepath.Join(DefaultCacheDir(), "browse.log"))

	v.SetDefault("rate_limits", []map[string]any{})
	v.SetDefault("rate_limit_margin", 0.9)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)

	v.SetDefault("workers", 4)
}

// Load merges v's settings with the short environment aliases and runtime
// overrides, decodes the result and records it as the current config. It is
// safe to call again on reload.
func Load(v *viper.Viper, runtimeOverrides ...map[string]any) (*Config, error) {
	if v == nil {
		v = viper.New()
		SetDefaults(v)
	}

	merged := v.AllSettings()

	envOverrides, err := gfconfig.LoadEnvOverrides(EnvSpecs(appid.EnvPrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	if value := strings.TrimSpace(os.Getenv(appid.EnvPrefix + "RATE_LIMIT_MARGIN")); value != "" {
		margin, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit margin: %w", err)
		}
		envOverrides["rate_limit_margin"] = margin
	}

	deepMerge(merged, envOverrides)
	for _, overrides := range runtimeOverrides {
		deepMerge(merged, overrides)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must not be negative")
	}
	if c.RateLimitMargin < 0 || c.RateLimitMargin > 1 {
		return fmt.Errorf("rate_limit_margin must be within [0, 1], got %v", c.RateLimitMargin)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Profile)) {
	case "", "structured", "simple":
	default:
		return fmt.Errorf("logging.profile must be structured or simple, got %q", c.Logging.Profile)
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// EnvSpecs returns the short environment aliases, e.g. POKEDEX_PORT for
// server.port. Every key is also reachable through its full dotted name with
// underscores (POKEDEX_SERVER_PORT).
func EnvSpecs(prefix string) []EnvVarSpec {
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	return []EnvVarSpec{
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		{Name: prefix + "CACHE_TTL", Path: []string{"cache", "ttl"}, Type: EnvString},
		{Name: prefix + "CACHE_MAX_ENTRIES", Path: []string{"cache", "max_entries"}, Type: EnvInt},

		{Name: prefix + "API_BASE_URL", Path: []string{"detail", "base_url"}, Type: EnvString},
		{Name: prefix + "UPSTREAM_BASE_URL", Path: []string{"upstream", "base_url"}, Type: EnvString},
		{Name: prefix + "NAMES_URL", Path: []string{"names", "url"}, Type: EnvString},

		{Name: prefix + "AUDIO_ENABLED", Path: []string{"audio", "enabled"}, Type: EnvBool},

		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},
		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},

		{Name: prefix + "WORKERS", Path: []string{"workers"}, Type: EnvInt},
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appid.ConfigName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(appid.ConfigName)
}

// DefaultCacheDir returns the XDG-compliant cache directory for the app.
func DefaultCacheDir() string {
	dir := gfconfig.GetAppCacheDir(appid.ConfigName)
	if strings.TrimSpace(dir) == "" {
		return os.TempDir()
	}
	return dir
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + appid.BinaryName + ".db"
	}
	return filepath.Join(dataDir, appid.BinaryName+".db")
}

func deepMerge(dst, src map[string]any) {
	for key, value := range src {
		key = strings.ToLower(key)
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			next := maps.Clone(dstMap)
			deepMerge(next, srcMap)
			dst[key] = next
			continue
		}
		dst[key] = value
	}
}
