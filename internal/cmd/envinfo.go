package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/pokedexplorer/pokedex/internal/appid"
	"github.com/pokedexplorer/pokedex/internal/config"
	"github.com/pokedexplorer/pokedex/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		version := crucible.GetVersion()

		log.Info("=== Pokedex Environment Information ===")
		log.Info("")

		log.Info("Application:")
		log.Info("  Name:       " + appid.BinaryName)
		log.Info("  Version:    " + versionInfo.Version)
		log.Info("  Commit:     " + versionInfo.Commit)
		log.Info("  Built:      " + versionInfo.BuildDate)
		log.Info("")

		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		log.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		log.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		log.Info("")

		cfg, err := loadConfig()
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}

		log.Info("Configuration:")
		log.Info("  Config File:    "+config.DefaultConfigPath(), zap.String("config_file", config.DefaultConfigPath()))
		log.Info("  Log Level:      "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		log.Info("  DB Driver:      "+cfg.Store.Driver, zap.String("db_driver", cfg.Store.Driver))
		if strings.TrimSpace(cfg.Store.URL) != "" {
			log.Info("  DB URL:         "+cfg.Store.URL, zap.String("db_url", cfg.Store.URL))
		} else {
			log.Info("  DB Path:        "+cfg.Store.Path, zap.String("db_path", cfg.Store.Path))
		}
		log.Info("")

		log.Info("Client:")
		log.Info("  Detail URL:     "+cfg.Detail.BaseURL+cfg.Detail.PathPrefix, zap.String("detail_url", cfg.Detail.BaseURL))
		log.Info("  Names URL:      "+cfg.Names.URL, zap.String("names_url", cfg.Names.URL))
		log.Info(fmt.Sprintf("  Audio:          %t (%s)", cfg.Audio.Enabled, strings.Join(cfg.Audio.Command, " ")), zap.Bool("audio_enabled", cfg.Audio.Enabled))
		log.Info("  UI Log File:    " + cfg.UI.LogFile)
		log.Info("")

		log.Info("Proxy:")
		log.Info(fmt.Sprintf("  Listen:         %s:%d", cfg.Server.Host, cfg.Server.Port), zap.String("host", cfg.Server.Host), zap.Int("port", cfg.Server.Port))
		log.Info("  Upstream:       "+cfg.Upstream.BaseURL+cfg.Upstream.PathPrefix, zap.String("upstream", cfg.Upstream.BaseURL))
		log.Info(fmt.Sprintf("  Cache:          %t ttl=%s max=%d", cfg.Cache.Enabled, cfg.Cache.TTL, cfg.Cache.MaxEntries), zap.Bool("cache_enabled", cfg.Cache.Enabled))
		log.Info(fmt.Sprintf("  Metrics:        %t port=%d", cfg.Metrics.Enabled, cfg.Metrics.Port), zap.Int("metrics_port", cfg.Metrics.Port))
		for _, limit := range cfg.RateLimits {
			log.Info(fmt.Sprintf("  Rate Limit:     %s %d/min", limit.Host, limit.PerMinute))
		}
		log.Info("")

		log.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
