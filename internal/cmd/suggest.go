package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pokedexplorer/pokedex/internal/config"
	"github.com/pokedexplorer/pokedex/internal/core/names"
	"github.com/pokedexplorer/pokedex/internal/core/suggest"
	"github.com/pokedexplorer/pokedex/internal/observability"
	"github.com/pokedexplorer/pokedex/internal/output"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <prefix>",
	Short: "List names that complete a prefix",
	Long: `List up to eight known names that start with the prefix, in list order.
With --fuzzy, names are ranked by similarity instead, so typos still match.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	suggestCmd.Flags().Bool("fuzzy", false, "Rank by fuzzy similarity instead of prefix")
	suggestCmd.Flags().Int("limit", suggest.MaxSuggestions, "Maximum fuzzy matches")
	suggestCmd.Flags().StringP("output", "o", string(output.FormatTable), "Output format: table, json")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	fuzzyMode, _ := cmd.Flags().GetBool("fuzzy")
	limit, _ := cmd.Flags().GetInt("limit")
	formatValue, _ := cmd.Flags().GetString("output")
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	list, err := loadNames(cmd, cfg)
	if err != nil {
		return err
	}

	query := normalizeArgs(args)
	var matches []suggest.Match
	if fuzzyMode {
		matches = suggest.Fuzzy(query, list, limit)
	} else {
		for _, name := range suggest.Suggest(query, list) {
			matches = append(matches, suggest.Match{Name: name})
		}
	}

	w := cmd.OutOrStdout()
	if format == output.FormatJSON {
		found := make([]string, 0, len(matches))
		for _, m := range matches {
			found = append(found, m.Name)
		}
		data, err := json.MarshalIndent(found, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	if len(matches) == 0 {
		_, err := fmt.Fprintf(w, "no names match %q\n", query)
		return err
	}
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	header := table.Row{"#", "Name"}
	if fuzzyMode {
		header = append(header, "Score")
	}
	t.AppendHeader(header)
	for i, m := range matches {
		row := table.Row{i + 1, m.Name}
		if fuzzyMode {
			row = append(row, m.Score)
		}
		t.AppendRow(row)
	}
	_, err = fmt.Fprintln(w, t.Render())
	return err
}

// loadNames fetches the full name list once, through the cache when the
// store is available.
func loadNames(cmd *cobra.Command, cfg *config.Config) ([]string, error) {
	ctx := cmd.Context()
	logger := observability.Logger()

	db := optionalStore(ctx, cfg, logger)
	if db != nil {
		defer db.Close() // nolint:errcheck
	}
	list, err := clientNameSource(cfg, db, logger).FetchNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("load name list: %w", err)
	}
	list = names.Normalize(list)
	if len(list) == 0 {
		return nil, names.ErrEmptyList
	}
	return list, nil
}
