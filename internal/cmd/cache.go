package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pokedexplorer/pokedex/internal/core/store"
	"github.com/pokedexplorer/pokedex/internal/output"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the local response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached detail and name list counts",
	RunE:  runCacheStats,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openConfiguredStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck

		removed, err := db.PruneExpired(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired entr(ies)\n", removed)
		return err
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached detail and name list",
	RunE: func(cmd *cobra.Command, _ []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return errors.New("clear requires --yes")
		}
		db, err := openConfiguredStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck

		removed, err := db.ClearCache(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache entr(ies)\n", removed)
		return err
	},
}

func init() {
	cacheStatsCmd.Flags().StringP("output", "o", string(output.FormatTable), "Output format: table|json")
	cacheClearCmd.Flags().Bool("yes", false, "Confirm deleting the cache")

	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	value, _ := cmd.Flags().GetString("output")
	format, err := output.ParseFormat(value)
	if err != nil {
		return err
	}
	if format != output.FormatJSON && format != output.FormatTable {
		return fmt.Errorf("unsupported output format: %s", format)
	}

	db, err := openConfiguredStore(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck

	stats, err := db.Stats(cmd.Context())
	if err != nil {
		return err
	}
	return writeCacheStats(cmd.OutOrStdout(), format, stats)
}

func writeCacheStats(w io.Writer, format output.Format, stats *store.CacheStats) error {
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(map[string]any{
			"detail_entries": stats.DetailEntries,
			"detail_expired": stats.DetailExpired,
			"detail_bytes":   stats.DetailBytes,
			"detail_hits":    stats.DetailHits,
			"name_lists":     stats.NameLists,
			"name_count":     stats.NameCount,
			"oldest":         stats.Oldest,
			"newest":         stats.Newest,
		}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Cache")
	t.AppendRows([]table.Row{
		{"Detail entries", stats.DetailEntries},
		{"Expired", stats.DetailExpired},
		{"Stored bytes", stats.DetailBytes},
		{"Hits served", stats.DetailHits},
		{"Name lists", stats.NameLists},
		{"Names", stats.NameCount},
		{"Oldest", formatStamp(stats.Oldest)},
		{"Newest", formatStamp(stats.Newest)},
	})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func formatStamp(ts *time.Time) string {
	if ts == nil {
		return "-"
	}
	return ts.UTC().Format(time.RFC3339)
}
