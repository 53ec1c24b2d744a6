package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pokedexplorer/pokedex/internal/appid"
	"github.com/pokedexplorer/pokedex/internal/config"
	"github.com/pokedexplorer/pokedex/internal/observability"
)

const doctorProbeTimeout = 5 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Check the config, the cache store, the audio player and the reachability of the detail service and name list.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := observability.CLILogger
		log.Info("=== " + appid.BinaryName + " doctor ===")
		log.Info("")

		allChecks := true
		total := 6
		step := func(n int, label string) string { return fmt.Sprintf("[%d/%d] Checking %s...", n, total, label) }

		version := crucible.GetVersion()
		if version.Crucible != "" && version.Gofulmen != "" {
			log.Info(fmt.Sprintf("%s ✅ gofulmen v%s, crucible v%s", step(1, "runtime"), version.Gofulmen, version.Crucible),
				zap.String("go_version", runtime.Version()))
		} else {
			log.Warn(step(1, "runtime") + " ⚠️  crucible metadata unavailable")
			allChecks = false
		}

		cfg, cfgErr := loadConfig()
		if cfgErr != nil {
			log.Error(step(2, "config")+" ❌ invalid", zap.Error(cfgErr))
			log.Info("")
			log.Warn("⚠️  Config could not be loaded; remaining checks skipped.")
			return
		}
		log.Info(fmt.Sprintf("%s ✅ %s", step(2, "config"), displayConfigPath()))

		if cfg.Store.URL != "" {
			log.Info(fmt.Sprintf("%s ✅ %s (remote)", step(3, "cache store"), cfg.Store.URL))
		} else if db, err := openStore(ctx, cfg); err != nil {
			log.Warn(step(3, "cache store")+" ⚠️  cannot open", zap.Error(err))
			allChecks = false
		} else {
			stats, statsErr := db.Stats(ctx)
			_ = db.Close()
			absPath, _ := filepath.Abs(cfg.Store.Path)
			size := "unknown size"
			if info, err := os.Stat(absPath); err == nil {
				size = formatFileSize(info.Size())
			}
			if statsErr != nil {
				log.Warn(step(3, "cache store")+" ⚠️  cannot read stats", zap.Error(statsErr))
				allChecks = false
			} else {
				log.Info(fmt.Sprintf("%s ✅ %s (%s, %d details, %d names)", step(3, "cache store"), absPath, size, stats.DetailEntries, stats.NameCount))
			}
		}

		switch {
		case !cfg.Audio.Enabled:
			log.Info(step(4, "audio player") + " ✅ disabled")
		case len(cfg.Audio.Command) == 0:
			log.Warn(step(4, "audio player") + " ⚠️  audio.command is empty")
			allChecks = false
		default:
			if path, err := exec.LookPath(cfg.Audio.Command[0]); err != nil {
				log.Warn(fmt.Sprintf("%s ⚠️  %s not found on PATH (cries will be silent)", step(4, "audio player"), cfg.Audio.Command[0]))
				allChecks = false
			} else {
				log.Info(fmt.Sprintf("%s ✅ %s", step(4, "audio player"), path))
			}
		}

		if err := probeURL(ctx, cfg.Detail.BaseURL+"/health/live"); err != nil {
			log.Warn(fmt.Sprintf("%s ⚠️  %s unreachable (start it with '%s serve')", step(5, "detail service"), cfg.Detail.BaseURL, appid.BinaryName), zap.Error(err))
			allChecks = false
		} else {
			log.Info(fmt.Sprintf("%s ✅ %s", step(5, "detail service"), cfg.Detail.BaseURL))
		}

		if err := probeURL(ctx, cfg.Names.URL); err != nil {
			log.Warn(fmt.Sprintf("%s ⚠️  %s unreachable (suggestions will be empty)", step(6, "name list"), cfg.Names.URL), zap.Error(err))
			allChecks = false
		} else {
			log.Info(fmt.Sprintf("%s ✅ %s", step(6, "name list"), cfg.Names.URL))
		}

		log.Info("")
		if allChecks {
			log.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", appid.BinaryName))
		} else {
			log.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		log.Info("=== End Diagnostics ===")
	},
}

var doctorInitForce bool

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := buildInitConfig(cfg)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, data, 0644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

func init() {
	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "Overwrite an existing config file")
	doctorCmd.AddCommand(doctorInitCmd)
	rootCmd.AddCommand(doctorCmd)
}

// buildInitConfig renders the user-facing part of cfg as YAML.
func buildInitConfig(cfg *config.Config) ([]byte, error) {
	doc := map[string]any{
		"detail": map[string]any{
			"base_url":    cfg.Detail.BaseURL,
			"path_prefix": cfg.Detail.PathPrefix,
			"timeout":     cfg.Detail.Timeout.String(),
		},
		"names": map[string]any{
			"url":       cfg.Names.URL,
			"use_cache": cfg.Names.UseCache,
		},
		"audio": map[string]any{
			"enabled": cfg.Audio.Enabled,
			"command": cfg.Audio.Command,
		},
		"ui": map[string]any{
			"dark_mode": cfg.UI.DarkMode,
		},
		"server": map[string]any{
			"host": cfg.Server.Host,
			"port": cfg.Server.Port,
		},
		"upstream": map[string]any{
			"base_url": cfg.Upstream.BaseURL,
		},
		"cache": map[string]any{
			"enabled":     cfg.Cache.Enabled,
			"ttl":         cfg.Cache.TTL.String(),
			"max_entries": cfg.Cache.MaxEntries,
		},
	}
	return yaml.Marshal(doc)
}

func probeURL(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
