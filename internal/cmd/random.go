package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pokedexplorer/pokedex/internal/core/engine"
	"github.com/pokedexplorer/pokedex/internal/core/names"
	"github.com/pokedexplorer/pokedex/internal/observability"
)

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Look up a randomly chosen creature",
	Long: `Pick a name uniformly from the full name list and look it up. When the list
cannot be loaded, the pick falls back to the quick-pick shortcuts.`,
	Args: cobra.NoArgs,
	RunE: runRandom,
}

func init() {
	rootCmd.AddCommand(randomCmd)
	addLookupFlags(randomCmd)
}

func runRandom(cmd *cobra.Command, _ []string) error {
	opts, overrides, err := readLookupOptions(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(overrides)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := observability.Logger()
	db := optionalStore(ctx, cfg, logger)
	if db != nil {
		defer db.Close() // nolint:errcheck
	}
	if opts.play {
		opts.player = newPlayer(cfg, logger)
		defer opts.player.Close()
	}

	session := engine.NewSession(ctx, engine.SessionConfig{
		Fetcher: newDetailClient(cfg, newLimiter(db, cfg), logger),
		Player:  soundPlayer(opts.player),
		Logger:  logger,
	})

	session.LoadNames(names.NewIndex(logger), clientNameSource(cfg, db, logger))
	session.Wait()

	state := session.RandomPick()
	logger.Info("random pick", zap.String("name", state.Committed), zap.Int("index_size", state.IndexSize))
	session.Wait()

	return renderLookup(ctx, cmd.OutOrStdout(), session, session.State(), opts)
}
