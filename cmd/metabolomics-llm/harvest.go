// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/samdeverett/metabolomics-llm/internal/checkpoint"
	"github.com/samdeverett/metabolomics-llm/internal/core"
	"github.com/samdeverett/metabolomics-llm/internal/harvest"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Fetch works from CORE and checkpoint one file per year",
	Long: `Harvest queries the CORE v3 search API for every publication year in the
configured range and writes each completed year to <data-dir>/<year>.db.

Years that already have a checkpoint are skipped without any request, so an
interrupted harvest resumes where it stopped. A failed year leaves no file
and is retried in full on the next run. By default a failed year is logged
and the harvest moves on; --stop-on-error ends the run at the first failure.

The API key is read from CORE_API_KEY, .secrets/core-api-key, or .env.`,
	RunE: runHarvest,
}

func runHarvest(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{
		"harvest.start_year":    "start",
		"harvest.end_year":      "end",
		"harvest.topic":         "topic",
		"harvest.language":      "language",
		"harvest.data_dir":      "data-dir",
		"harvest.stop_on_error": "stop-on-error",
		"core.page_size":        "page-size",
		"core.page_delay":       "page-delay",
	}); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Core.APIKey == "" {
		logger.Warn().Msg("no CORE API key configured; requests are sent unauthenticated")
	}

	store, err := checkpoint.Open(cfg.Harvest.DataDir, logger)
	if err != nil {
		return err
	}

	client := core.NewClient(cfg.Core, logger)
	client.OnPage = core.LogProgress(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := harvest.Run(ctx, client, store, cfg.Harvest, logger)

	fmt.Fprintf(os.Stdout, "Harvest: %d years (%d fetched, %d skipped, %d failed), %d records written\n",
		summary.Total(), summary.Fetched, summary.Skipped, summary.Failed, summary.Records)
	if summary.Duplicates > 0 {
		fmt.Fprintf(os.Stdout, "Dropped %d repeated ids\n", summary.Duplicates)
	}

	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d years failed: %v (rerun to retry them)", summary.Failed, summary.FailedYears)
	}
	return nil
}

func init() {
	harvestCmd.Flags().Int("start", defaultStartYear, "first publication year to harvest")
	harvestCmd.Flags().Int("end", defaultEndYear, "last publication year to harvest (inclusive)")
	harvestCmd.Flags().String("topic", harvest.DefaultTopic, "free-text query term")
	harvestCmd.Flags().String("language", harvest.DefaultLanguage, "language filter (empty disables it)")
	harvestCmd.Flags().String("data-dir", "data", "directory for yearly checkpoint files")
	harvestCmd.Flags().Bool("stop-on-error", false, "stop at the first failed year instead of skipping it")
	harvestCmd.Flags().Int("page-size", core.DefaultPageSize, "records requested per page")
	harvestCmd.Flags().Duration("page-delay", 0, "pause between page requests")

	rootCmd.AddCommand(harvestCmd)
}
