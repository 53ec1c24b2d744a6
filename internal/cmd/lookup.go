package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pokedexplorer/pokedex/internal/core"
	"github.com/pokedexplorer/pokedex/internal/core/audio"
	"github.com/pokedexplorer/pokedex/internal/core/engine"
	"github.com/pokedexplorer/pokedex/internal/observability"
	"github.com/pokedexplorer/pokedex/internal/output"
)

const spriteWidth = 32

var lookupCmd = &cobra.Command{
	Use:   "lookup <name>",
	Short: "Look up one creature by name",
	Long: `Look up one creature by name and print its profile, types, abilities and
base stats. The name is trimmed and lower-cased before the request.`,
	Example: `  pokedex lookup pikachu
  pokedex lookup "Mr-Mime" --output json
  pokedex lookup eevee --sprite --play`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	addLookupFlags(lookupCmd)
}

func addLookupFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", string(output.FormatTable), "Output format: table, json, markdown, yaml")
	cmd.Flags().Bool("sprite", false, "Render the still image in the terminal")
	cmd.Flags().Bool("play", false, "Play the cry after the lookup")
	cmd.Flags().String("api", "", "Detail service base URL (overrides detail.base_url)")
}

type lookupOptions struct {
	format output.Format
	sprite bool
	play   bool
	player *audio.Player
}

func readLookupOptions(cmd *cobra.Command) (lookupOptions, map[string]any, error) {
	var opts lookupOptions
	value, err := cmd.Flags().GetString("output")
	if err != nil {
		return opts, nil, err
	}
	if opts.format, err = output.ParseFormat(value); err != nil {
		return opts, nil, err
	}
	if opts.sprite, err = cmd.Flags().GetBool("sprite"); err != nil {
		return opts, nil, err
	}
	if opts.play, err = cmd.Flags().GetBool("play"); err != nil {
		return opts, nil, err
	}

	overrides := map[string]any{}
	if api, _ := cmd.Flags().GetString("api"); api != "" {
		overrides["detail"] = map[string]any{"base_url": api}
	}
	return opts, overrides, nil
}

func runLookup(cmd *cobra.Command, args []string) error {
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
	state := lookup(session, normalizeArgs(args))

	return renderLookup(ctx, cmd.OutOrStdout(), session, state, opts)
}

// lookup submits name and waits for the session to settle.
func lookup(session *engine.Session, name string) engine.State {
	session.Submit(name)
	session.Wait()
	return session.State()
}

func renderLookup(ctx context.Context, w io.Writer, session *engine.Session, state engine.State, opts lookupOptions) error {
	if state.Request.Failed() {
		return errors.New(state.Request.Reason)
	}
	rec := state.Record

	rendered, err := output.NewFormatter(opts.format).FormatPokemon(rec)
	if err != nil {
		return err
	}
	if opts.sprite && rec.ImageURL() != "" {
		img, err := output.FetchImage(ctx, http.DefaultClient, rec.ImageURL())
		if err != nil {
			observability.Logger().Warn("sprite unavailable", zap.String("name", rec.Name), zap.Error(err))
		} else {
			rendered = output.Sprite(img, spriteWidth) + "\n" + rendered
		}
	}
	if _, err := fmt.Fprintln(w, rendered); err != nil {
		return err
	}

	if opts.play {
		if !state.CanPlaySound() {
			observability.Logger().Info("no cry available", zap.String("name", rec.Name))
			return nil
		}
		session.PlaySound()
		session.Wait()
		waitForPlayback(ctx, opts.player)
	}
	return nil
}

// waitForPlayback blocks while the player's clip is still running.
func waitForPlayback(ctx context.Context, player *audio.Player) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for player.Active() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// recordOrError flattens a settled state for batch output.
func recordOrError(query string, state engine.State) output.Result {
	if state.Request.Status == core.StatusSuccess && state.Record != nil {
		return output.Result{Query: query, Pokemon: state.Record}
	}
	reason := state.Request.Reason
	if reason == "" {
		reason = core.MsgFallback
	}
	return output.Result{Query: query, Error: reason}
}
