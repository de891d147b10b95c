// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/samdeverett/metabolomics-llm/internal/checkpoint"
	"github.com/samdeverett/metabolomics-llm/internal/chunk"
	"github.com/samdeverett/metabolomics-llm/internal/embed"
	"github.com/samdeverett/metabolomics-llm/internal/pipeline"
	"github.com/samdeverett/metabolomics-llm/internal/vectorindex"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Chunk, embed, and index checkpointed works",
	Long: `Index reads the checkpoints in [--start, --end], splits each work's text
into overlapping word windows, embeds them with the configured Ollama model,
and upserts the vectors into the local index. Vector ids combine the year,
the work id and the chunk number, so rerunning over the same years replaces
vectors instead of duplicating them, and vectors a year no longer produces
are removed.

The index records its embedding model, dimension and metric when created;
reopening it with a different model, dimension, or metric is an error.`,
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{
		"harvest.start_year": "start",
		"harvest.end_year":   "end",
		"harvest.data_dir":   "data-dir",
		"embed.model":        "model",
		"embed.batch_size":   "batch-size",
		"index.path":         "index-path",
		"index.name":         "index-name",
		"index.metric":       "metric",
	}); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := checkpoint.Open(cfg.Harvest.DataDir, logger)
	if err != nil {
		return err
	}

	embedder := embed.NewOllama(cfg.Embed)
	dim, err := embed.Dimension(ctx, embedder)
	if err != nil {
		return err
	}
	logger.Info().Str("model", embedder.ModelName()).Int("dimension", dim).Msg("embedding model ready")

	idx, err := vectorindex.Open(cfg.Index.Path, cfg.Index.Name, vectorindex.Settings{
		Dimension: dim,
		Metric:    cfg.Index.Metric,
		Model:     embedder.ModelName(),
	})
	if err != nil {
		return err
	}
	defer idx.Close()

	ix := &pipeline.Indexer{
		Source:     store,
		Chunker:    chunk.New(cfg.Embed.ChunkWords, cfg.Embed.ChunkOverlap),
		Embedder:   embedder,
		Sink:       idx,
		BatchSize:  cfg.Embed.BatchSize,
		OnProgress: yearBars(),
		Log:        logger,
	}

	sum, err := ix.Run(ctx, cfg.Harvest.StartYear, cfg.Harvest.EndYear)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	count, err := idx.Count()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Indexed %d years, %d records, %d chunks in %d batches (%d stale vectors removed)\n",
		sum.Years, sum.Records, sum.Chunks, sum.Batches, sum.Pruned)
	fmt.Fprintf(os.Stdout, "Index %q (%s, dim %d) now holds %d vectors\n",
		cfg.Index.Name, idx.Metric(), idx.Dimension(), count)
	return nil
}

// yearBars returns a progress callback that draws one bar per year.
func yearBars() pipeline.ProgressFunc {
	var (
		bar     *progressbar.ProgressBar
		current int
	)
	return func(year, done, total int) {
		if bar == nil || year != current {
			current = year
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%d[reset]", year)),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}
		_ = bar.Set(done)
	}
}

func init() {
	indexCmd.Flags().Int("start", defaultStartYear, "first year to index")
	indexCmd.Flags().Int("end", defaultEndYear, "last year to index (inclusive)")
	indexCmd.Flags().String("data-dir", "data", "directory of yearly checkpoint files")
	indexCmd.Flags().String("model", embed.DefaultModel, "Ollama embedding model")
	indexCmd.Flags().Int("batch-size", embed.DefaultBatchSize, "chunks embedded per request")
	indexCmd.Flags().String("index-path", "index/vectors.db", "vector index database file")
	indexCmd.Flags().String("index-name", "metabolomics", "index name inside the database")
	indexCmd.Flags().String("metric", vectorindex.MetricCosine, "similarity metric: cosine, euclidean, or dotproduct")

	rootCmd.AddCommand(indexCmd)
}
