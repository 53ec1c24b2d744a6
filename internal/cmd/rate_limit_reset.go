package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/pokedexplorer/pokedex/internal/output"
)

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete stored request windows",
	Example: `  pokedex rate-limit reset --host pokeapi.co
  pokedex rate-limit reset --all --dry-run
  pokedex rate-limit reset --all --yes`,
	RunE: runRateLimitReset,
}

func init() {
	rateLimitResetCmd.Flags().Bool("yes", false, "Confirm resetting every host")
	rateLimitResetCmd.Flags().Bool("dry-run", false, "Report what would be deleted without deleting")
}

type rateLimitResetResult struct {
	Matched int   `json:"matched"`
	Deleted int64 `json:"deleted"`
	DryRun  bool  `json:"dry_run"`
}

func runRateLimitReset(cmd *cobra.Command, _ []string) error {
	format, err := rateLimitFormat(cmd)
	if err != nil {
		return err
	}
	target, err := readOutputTarget(cmd)
	if err != nil {
		return err
	}

	query := rateLimitQueryFromFlags(cmd)
	if err := query.Validate(); err != nil {
		return err
	}
	yes, _ := cmd.Flags().GetBool("yes")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if query.All && !yes && !dryRun {
		return errors.New("--all requires --yes (or --dry-run)")
	}

	db, err := openConfiguredStore(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck

	entries, err := db.ListRateLimits(cmd.Context(), query)
	if err != nil {
		return err
	}
	result := rateLimitResetResult{Matched: len(entries), DryRun: dryRun}
	if !dryRun {
		if result.Deleted, err = db.ResetRateLimits(cmd.Context(), query); err != nil {
			return err
		}
	}

	out, err := target.open(cmd.OutOrStdout(), "rate-limit-reset", format)
	if err != nil {
		return err
	}
	defer out.Close() // nolint:errcheck
	return writeRateLimitReset(out, format, result)
}

func writeRateLimitReset(w io.Writer, format output.Format, result rateLimitResetResult) error {
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	summary := fmt.Sprintf("Deleted %d of %d host window(s)", result.Deleted, result.Matched)
	if result.DryRun {
		summary = fmt.Sprintf("Would delete %d host window(s)", result.Matched)
	}
	_, err := fmt.Fprint(w, ascii.DrawBox(summary, 0))
	return err
}
