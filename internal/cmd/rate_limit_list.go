package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pokedexplorer/pokedex/internal/core/store"
	"github.com/pokedexplorer/pokedex/internal/output"
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show stored request windows per upstream host",
	Example: `  pokedex rate-limit list
  pokedex rate-limit list --suffix pokeapi.co -o json`,
	RunE: runRateLimitList,
}

type rateLimitRow struct {
	Host         string     `json:"host"`
	Requests     int        `json:"requests"`
	WindowStart  time.Time  `json:"window_start"`
	BackoffUntil *time.Time `json:"backoff_until,omitempty"`
	Last429At    *time.Time `json:"last_429_at,omitempty"`
}

func runRateLimitList(cmd *cobra.Command, _ []string) error {
	format, err := rateLimitFormat(cmd)
	if err != nil {
		return err
	}
	target, err := readOutputTarget(cmd)
	if err != nil {
		return err
	}

	query := rateLimitQueryFromFlags(cmd)
	if query.Validate() != nil {
		query.All = true
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

	out, err := target.open(cmd.OutOrStdout(), "rate-limit-list", format)
	if err != nil {
		return err
	}
	defer out.Close() // nolint:errcheck
	return writeRateLimitList(out, format, entries)
}

func writeRateLimitList(w io.Writer, format output.Format, entries []store.RateLimitEntry) error {
	rows := make([]rateLimitRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, rateLimitRow{
			Host:         e.Host,
			Requests:     e.State.RequestCount,
			WindowStart:  e.State.WindowStart.UTC(),
			BackoffUntil: e.State.BackoffUntil,
			Last429At:    e.State.Last429At,
		})
	}

	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No stored rate limit state.")
		return err
	}
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Rate limits")
	t.AppendHeader(table.Row{"Host", "Requests", "Window start", "Backoff until"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Host, r.Requests, r.WindowStart.Format(time.RFC3339), formatStamp(r.BackoffUntil)})
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
