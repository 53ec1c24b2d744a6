package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/pokedexplorer/pokedex/internal/core"
	"github.com/pokedexplorer/pokedex/internal/core/engine"
	"github.com/pokedexplorer/pokedex/internal/observability"
	"github.com/pokedexplorer/pokedex/internal/output"
)

var batchCmd = &cobra.Command{
	Use:   "batch [name...]",
	Short: "Look up many names at once",
	Long: `Look up every name given as an argument, or one per line from --file
("-" reads stdin). Failed lookups are reported next to the found ones.`,
	Example: `  pokedex batch pikachu eevee snorlax
  pokedex batch --file team.txt --output markdown --out team.md
  pokedex batch --file team.txt --out-dir cards/`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("file", "f", "", "Read names from file, one per line (- for stdin)")
	batchCmd.Flags().StringP("output", "o", string(output.FormatTable), "Output format: table, json, markdown, yaml")
	batchCmd.Flags().Int("concurrency", 3, "Concurrent lookups (default from workers)")
	batchCmd.Flags().Bool("found-only", false, "Only show names that were found")
	addOutputTargetFlags(batchCmd)
	batchCmd.Flags().String("api", "", "Detail service base URL (overrides detail.base_url)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	namesFile, _ := cmd.Flags().GetString("file")
	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}
	if concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	foundOnly, _ := cmd.Flags().GetBool("found-only")
	target, err := readOutputTarget(cmd)
	if err != nil {
		return err
	}

	list, err := resolveNames(args, namesFile)
	if err != nil {
		return err
	}

	overrides := map[string]any{}
	if api, _ := cmd.Flags().GetString("api"); api != "" {
		overrides["detail"] = map[string]any{"base_url": api}
	}
	cfg, err := loadConfig(overrides)
	if err != nil {
		return err
	}

	if !cmd.Flags().Changed("concurrency") && cfg.Workers > 0 {
		concurrency = cfg.Workers
	}

	ctx := cmd.Context()
	logger := observability.Logger()
	db := optionalStore(ctx, cfg, logger)
	if db != nil {
		defer db.Close() // nolint:errcheck
	}

	startedAt := time.Now()
	fetcher := newDetailClient(cfg, newLimiter(db, cfg), logger)
	results, err := runBatchLookups(ctx, fetcher, list, concurrency, logger)
	if err != nil {
		return err
	}
	logThroughput(len(results), startedAt)

	if foundOnly {
		results = filterFound(results)
	}

	if target.Dir != "" {
		return writeResultFiles(cmd, target, format, results)
	}

	rendered, err := output.NewFormatter(format).FormatResults(results)
	if err != nil {
		return err
	}
	path, err := target.write(cmd.OutOrStdout(), "batch", format, rendered)
	if err != nil {
		return err
	}
	if path != "" {
		logger.Info("batch written", zap.String("path", path), zap.Int("results", len(results)))
	}
	return nil
}

// runBatchLookups looks up every name in its own session, at most
// concurrency at a time, and returns results in input order. Lookup failures
// become result errors; only cancellation aborts the run.
func runBatchLookups(ctx context.Context, fetcher engine.Fetcher, list []string, concurrency int, logger core.Logger) ([]output.Result, error) {
	results := make([]output.Result, len(list))
	sem := semaphore.NewWeighted(int64(concurrency))

	for i, name := range list {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		go func(i int, name string) {
			defer sem.Release(1)
			session := engine.NewSession(ctx, engine.SessionConfig{Fetcher: fetcher, Logger: logger})
			results[i] = recordOrError(name, lookup(session, name))
		}(i, name)
	}
	if err := sem.Acquire(ctx, int64(concurrency)); err != nil {
		return nil, err
	}
	return results, nil
}

func filterFound(results []output.Result) []output.Result {
	filtered := make([]output.Result, 0, len(results))
	for _, result := range results {
		if result.Pokemon != nil {
			filtered = append(filtered, result)
		}
	}
	return filtered
}

// writeResultFiles writes one file per found result into target.Dir, named
// after the species.
func writeResultFiles(cmd *cobra.Command, target outputTarget, format output.Format, results []output.Result) error {
	formatter := output.NewFormatter(format)
	written := 0
	for _, result := range results {
		if result.Pokemon == nil {
			continue
		}
		rendered, err := formatter.FormatPokemon(result.Pokemon)
		if err != nil {
			return err
		}
		if _, err := target.write(cmd.OutOrStdout(), result.Pokemon.Name, format, rendered); err != nil {
			return err
		}
		written++
	}
	dir := target.Dir
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %d of %d results to %s\n", written, len(results), dir)
	return err
}

func logThroughput(count int, startedAt time.Time) {
	if count <= 0 {
		return
	}
	elapsed := time.Since(startedAt)
	if elapsed <= 0 {
		return
	}
	rate := float64(count) / elapsed.Seconds()
	observability.Logger().Info(
		"Lookup throughput",
		zap.Int("lookups", count),
		zap.Duration("elapsed", elapsed),
		zap.Float64("rate_per_sec", rate),
	)
}
