// Package observability owns the process-wide loggers and the telemetry
// system. Commands log through CLILogger, the detail proxy through
// ServerLogger, and the full-screen browser through a zap file logger so that
// log lines never land on the terminal it draws.
package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pokedexplorer/pokedex/internal/core"
)

var (
	// CLILogger logs for one-shot commands.
	CLILogger *logging.Logger

	// ServerLogger logs for the detail proxy.
	ServerLogger *logging.Logger
)

// ServerLogOptions shapes the proxy logger. Profile "simple" writes
// human-readable console lines; anything else writes JSON with request
// correlation.
type ServerLogOptions struct {
	Level     string
	Profile   string
	Namespace string
}

// InitCLILogger installs CLILogger. A logger that cannot be built is fatal:
// nothing exists yet to report through.
func InitCLILogger(service string, verbose bool) {
	logger, err := logging.NewCLI(service)
	if err != nil {
		fatal("initialize CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// InitServerLogger installs ServerLogger. On error the previous logger, if
// any, stays in place, which keeps a bad SIGHUP reload from silencing a
// running proxy.
func InitServerLogger(service string, opts ServerLogOptions) error {
	logger, err := logging.New(serverLoggerConfig(service, opts))
	if err != nil {
		return fmt.Errorf("initialize server logger: %w", err)
	}
	ServerLogger = logger
	return nil
}

func serverLoggerConfig(service string, opts ServerLogOptions) *logging.LoggerConfig {
	cfg := &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: logLevel(opts.Level),
		Service:      service,
		Environment:  "production",
		StaticFields: map[string]any{},
		Sinks: []logging.SinkConfig{{
			Type:    "console",
			Format:  "json",
			Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
		}},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
	if ns := strings.TrimSpace(opts.Namespace); ns != "" {
		cfg.StaticFields["namespace"] = ns
	}

	if strings.EqualFold(strings.TrimSpace(opts.Profile), "simple") {
		cfg.Profile = logging.ProfileSimple
		cfg.Sinks[0].Format = "console"
		cfg.EnableCaller = false
		cfg.EnableStacktrace = false
		return cfg
	}
	cfg.Middleware = []logging.MiddlewareConfig{{
		Name:    "correlation",
		Enabled: true,
		Order:   100,
		Config:  map[string]any{},
	}}
	return cfg
}

// NewFileLogger returns a JSON zap logger appending to path. The returned
// close function flushes and releases the file.
func NewFileLogger(path string, verbose bool) (*zap.Logger, func(), error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return zap.NewNop(), func() {}, nil
	}
	// #nosec G301 -- same mode as the store directory
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build file logger: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// Logger returns CLILogger, or a no-op logger before InitCLILogger.
func Logger() core.Logger {
	if CLILogger == nil {
		return core.NopLogger()
	}
	return CLILogger
}

// ServerLog returns ServerLogger, or a no-op logger before InitServerLogger.
func ServerLog() core.Logger {
	if ServerLogger == nil {
		return core.NopLogger()
	}
	return ServerLogger
}

var logLevels = map[string]string{
	"trace":   "TRACE",
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

func logLevel(name string) string {
	if level, ok := logLevels[strings.ToLower(strings.TrimSpace(name))]; ok {
		return level
	}
	return "INFO"
}

func fatal(action string, err error) {
	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", action, err)
	var code foundry.ExitCode = foundry.ExitConfigInvalid
	if info, ok := foundry.GetExitCodeInfo(code); ok {
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s)\n", info.Code, info.Name)
		os.Exit(info.Code)
	}
	os.Exit(int(code))
}
