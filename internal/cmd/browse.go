package cmd

import (
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pokedexplorer/pokedex/internal/observability"
	"github.com/pokedexplorer/pokedex/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Open the interactive explorer",
	Long: `Open the full-screen explorer: type to get name suggestions, press enter to
look up, alt+1..6 for quick picks, ctrl+r for a random pick, ctrl+p to play
the cry and ctrl+t to switch themes. Logs go to ui.log_file.`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)

	browseCmd.Flags().Bool("dark", false, "Start in dark mode")
	browseCmd.Flags().Bool("no-sprites", false, "Do not render still images")
	browseCmd.Flags().String("api", "", "Detail service base URL (overrides detail.base_url)")
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	overrides := map[string]any{}
	if api, _ := cmd.Flags().GetString("api"); api != "" {
		overrides["detail"] = map[string]any{"base_url": api}
	}
	if cmd.Flags().Changed("dark") {
		dark, _ := cmd.Flags().GetBool("dark")
		overrides["ui"] = map[string]any{"dark_mode": dark}
	}
	cfg, err := loadConfig(overrides)
	if err != nil {
		return err
	}
	noSprites, _ := cmd.Flags().GetBool("no-sprites")

	fileLogger, flush, err := observability.NewFileLogger(cfg.UI.LogFile, verbose)
	if err != nil {
		return err
	}
	defer flush()
	fileLogger.Info("browse started",
		zap.String("detail", cfg.Detail.BaseURL),
		zap.Bool("audio", cfg.Audio.Enabled))

	ctx := cmd.Context()
	db := optionalStore(ctx, cfg, fileLogger)
	if db != nil {
		defer db.Close() // nolint:errcheck
	}
	player := newPlayer(cfg, fileLogger)
	defer player.Close()

	return tui.Run(ctx, tui.Config{
		Fetcher:     newDetailClient(cfg, newLimiter(db, cfg), fileLogger),
		Player:      soundPlayer(player),
		Names:       clientNameSource(cfg, db, fileLogger),
		Logger:      fileLogger,
		DarkMode:    cfg.UI.DarkMode,
		Sprites:     !noSprites,
		ImageClient: &http.Client{Timeout: cfg.Detail.Timeout},
	})
}
