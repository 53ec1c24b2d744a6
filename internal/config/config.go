package config

import "time"

// Config is the complete application configuration. Values come from, in
// increasing precedence: built-in defaults, the YAML config file, POKEDEX_*
// environment variables, and runtime overrides such as command-line flags.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Detail   DetailConfig   `mapstructure:"detail"`
	Names    NamesConfig    `mapstructure:"names"`
	Audio    AudioConfig    `mapstructure:"audio"`
	UI       UIConfig       `mapstructure:"ui"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
	Workers  int            `mapstructure:"workers"`

	RateLimits      []HostLimit `mapstructure:"rate_limits"`
	RateLimitMargin float64     `mapstructure:"rate_limit_margin"`
}

// HostLimit overrides the per-minute request budget for one host. Limits are
// a list rather than a map because host names contain the key delimiter.
type HostLimit struct {
	Host      string `mapstructure:"host"`
	PerMinute int    `mapstructure:"per_minute"`
}

// RateLimitOverrides returns the configured limits keyed by host.
func (c *Config) RateLimitOverrides() map[string]int {
	out := make(map[string]int, len(c.RateLimits))
	for _, limit := range c.RateLimits {
		if limit.Host == "" || limit.PerMinute <= 0 {
			continue
		}
		out[limit.Host] = limit.PerMinute
	}
	return out
}

// ServerConfig contains HTTP server configuration for the detail proxy.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CORSOrigins lists allowed browser origins; "*" allows any.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StoreConfig contains database configuration for libsql/Turso.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// CacheConfig controls the proxy's detail cache and the name list snapshot.
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
	NamesTTL   time.Duration `mapstructure:"names_ttl"`
}

// UpstreamConfig addresses the public data source the proxy forwards to.
type UpstreamConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	PathPrefix string        `mapstructure:"path_prefix"`
	ListURL    string        `mapstructure:"list_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// DetailConfig addresses the detail source used by the client commands.
type DetailConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	PathPrefix string        `mapstructure:"path_prefix"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// NamesConfig addresses the name list used for autocomplete.
type NamesConfig struct {
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	UseCache bool          `mapstructure:"use_cache"`
}

// AudioConfig controls cry playback.
type AudioConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Command []string `mapstructure:"command"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	DarkMode bool `mapstructure:"dark_mode"`
	// LogFile receives logs while the full-screen UI owns the terminal.
	LogFile string `mapstructure:"log_file"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated Prometheus endpoint port. JSON metrics are also
	// served on the main HTTP port.
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
