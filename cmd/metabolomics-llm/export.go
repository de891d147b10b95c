// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/samdeverett/metabolomics-llm/internal/checkpoint"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export checkpointed records to YAML or JSON",
	Long: `Export reads every checkpoint in [--start, --end], skipping years without
one, and writes the records tagged with their year. Output goes to stdout
unless --output names a file.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{
		"harvest.start_year": "start",
		"harvest.end_year":   "end",
		"harvest.data_dir":   "data-dir",
	}); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	omit, _ := cmd.Flags().GetBool("omit-full-text")
	output, _ := cmd.Flags().GetString("output")

	store, err := checkpoint.Open(cfg.Harvest.DataDir, logger)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if output != "" && output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	n, err := store.Export(context.Background(), w, checkpoint.ExportOptions{
		Start:        cfg.Harvest.StartYear,
		End:          cfg.Harvest.EndYear,
		Format:       format,
		OmitFullText: omit,
	})
	if err != nil {
		return err
	}
	if w != os.Stdout {
		fmt.Fprintf(os.Stderr, "Exported %d records to %s\n", n, output)
	}
	return nil
}

func init() {
	exportCmd.Flags().Int("start", defaultStartYear, "first year to export")
	exportCmd.Flags().Int("end", defaultEndYear, "last year to export (inclusive)")
	exportCmd.Flags().String("data-dir", "data", "directory of yearly checkpoint files")
	exportCmd.Flags().String("format", checkpoint.FormatYAML, "export format: yaml or json")
	exportCmd.Flags().String("output", "", "output file (default stdout)")
	exportCmd.Flags().Bool("omit-full-text", false, "drop full_text from exported records")

	rootCmd.AddCommand(exportCmd)
}
