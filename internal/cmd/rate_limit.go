package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pokedexplorer/pokedex/internal/core/store"
	"github.com/pokedexplorer/pokedex/internal/output"
)

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect or clear the stored per-host request windows",
	Long: `The detail client records how many requests it sent to each upstream host
in the current minute, and any backoff a 429 response asked for. These
commands read and clear that state.`,
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd, rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)

	for _, c := range []*cobra.Command{rateLimitListCmd, rateLimitResetCmd} {
		c.Flags().Bool("all", false, "Select every host")
		c.Flags().String("host", "", "Select one host (exact match)")
		c.Flags().String("suffix", "", "Select hosts ending with suffix")
		c.Flags().StringP("output", "o", string(output.FormatTable), "Output format: table, json")
		addOutputTargetFlags(c)
	}
}

// openConfiguredStore loads config and opens the store for the admin
// commands, which cannot work without it.
func openConfiguredStore(ctx context.Context) (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openStore(ctx, cfg)
}

func rateLimitQueryFromFlags(cmd *cobra.Command) store.RateLimitQuery {
	all, _ := cmd.Flags().GetBool("all")
	host, _ := cmd.Flags().GetString("host")
	suffix, _ := cmd.Flags().GetString("suffix")
	return store.RateLimitQuery{All: all, Host: strings.TrimSpace(host), Suffix: strings.TrimSpace(suffix)}
}

// rateLimitFormat accepts only the formats the admin commands render.
func rateLimitFormat(cmd *cobra.Command) (output.Format, error) {
	value, _ := cmd.Flags().GetString("output")
	format, err := output.ParseFormat(value)
	if err != nil {
		return "", err
	}
	if format != output.FormatJSON && format != output.FormatTable {
		return "", fmt.Errorf("rate-limit commands support table or json, not %s", format)
	}
	return format, nil
}
