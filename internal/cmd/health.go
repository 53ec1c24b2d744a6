package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apperrors "github.com/pokedexplorer/pokedex/internal/errors"
	"github.com/pokedexplorer/pokedex/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check: version info, logger, configuration and the cache store.",
	Run: func(cmd *cobra.Command, args []string) {
		// Can't log if logger is nil, so use stderr
		if observability.CLILogger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", apperrors.NewInternalError("Logger not initialized"))
			return
		}
		log := observability.CLILogger
		log.Info("Running health check...")

		if versionInfo.Version == "" {
			log.Error("❌ FAIL: Version information missing")
			ExitWithCode(log, foundry.ExitConfigInvalid, "Version information missing", apperrors.NewInternalError("Version information missing"))
			return
		}
		log.Debug("Version check passed", zap.String("version", versionInfo.Version))
		log.Info("✅ Version information available")
		log.Info("✅ Logger initialized")

		cfg, err := loadConfig()
		if err != nil {
			ExitWithCode(log, foundry.ExitConfigInvalid, "Configuration invalid",
				apperrors.Wrap(cmd.Context(), apperrors.CodeInvalidInput, err, "configuration invalid"))
			return
		}
		log.Info("✅ Configuration valid")

		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			ExitWithCode(log, foundry.ExitFailure, "Cache store unavailable",
				apperrors.WrapDatabaseError(cmd.Context(), err, "cache store unavailable"))
			return
		}
		_ = db.Close()
		log.Info("✅ Cache store ready", zap.String("driver", db.Driver()))

		log.Info("")
		log.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
