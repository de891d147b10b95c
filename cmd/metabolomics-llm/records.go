// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/samdeverett/metabolomics-llm/internal/checkpoint"
)

var recordsCmd = &cobra.Command{
	Use:   "records [year]",
	Short: "List checkpointed years or the records of one year",
	Long: `Records without arguments lists every checkpointed year with its record
count. With a year argument it lists that year's records in insertion order.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecords,
}

type yearSummary struct {
	Year    int    `json:"year"`
	Records int    `json:"records"`
	Path    string `json:"path"`
}

func runRecords(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{"harvest.data_dir": "data-dir"}); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := checkpoint.Open(cfg.Harvest.DataDir, logger)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	ctx := context.Background()

	if len(args) == 1 {
		year, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid year %q: %w", args[0], err)
		}
		return printYear(ctx, store, year, asJSON)
	}

	years, err := store.Years()
	if err != nil {
		return err
	}
	summaries := make([]yearSummary, 0, len(years))
	for _, y := range years {
		n, err := store.Count(ctx, y)
		if err != nil {
			return err
		}
		summaries = append(summaries, yearSummary{Year: y, Records: n, Path: store.Path(y)})
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintf(os.Stdout, "No checkpoints in %s\n", store.Dir())
		return nil
	}
	tb := newTable("YEAR", "RECORDS", "PATH")
	total := 0
	for _, s := range summaries {
		tb.add(strconv.Itoa(s.Year), strconv.Itoa(s.Records), s.Path)
		total += s.Records
	}
	if err := tb.write(os.Stdout); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\n%d years, %d records\n", len(summaries), total)
	return nil
}

func printYear(ctx context.Context, store *checkpoint.Store, year int, asJSON bool) error {
	records, err := store.ReadYear(ctx, year)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	tb := newTable("#", "ID", "TYPE", "PUBLISHED", "CITED", "TITLE").limit(1, 14).limit(5, 60)
	for i, r := range records {
		cited := ""
		if r.CitationCount != nil {
			cited = strconv.FormatInt(*r.CitationCount, 10)
		}
		tb.add(strconv.Itoa(i+1), r.ID, deref(r.Type), deref(r.PublishedDate), cited, r.TitleOrEmpty())
	}
	if err := tb.write(os.Stdout); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\n%d records\n", len(records))
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func init() {
	recordsCmd.Flags().String("data-dir", "data", "directory of yearly checkpoint files")
	recordsCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(recordsCmd)
}
