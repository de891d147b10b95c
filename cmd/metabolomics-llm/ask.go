// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samdeverett/metabolomics-llm/internal/embed"
	"github.com/samdeverett/metabolomics-llm/internal/qa"
	"github.com/samdeverett/metabolomics-llm/internal/vectorindex"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed literature",
	Long: `Ask embeds the question, retrieves the closest chunks from the vector
index, and passes all of them to the Ollama generation model in one prompt.
The retrieved sources are listed after the answer unless --no-sources is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{
		"qa.model":          "model",
		"qa.top_k":          "top-k",
		"qa.max_new_tokens": "max-new-tokens",
		"qa.temperature":    "temperature",
		"index.path":        "index-path",
		"index.name":        "index-name",
	}); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noSources, _ := cmd.Flags().GetBool("no-sources"); noSources {
		cfg.QA.ReturnSources = false
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	if _, err := os.Stat(cfg.Index.Path); err != nil {
		return fmt.Errorf("vector index %s not found: run index first", cfg.Index.Path)
	}
	embedder := embed.NewOllama(cfg.Embed)
	idx, err := vectorindex.Open(cfg.Index.Path, cfg.Index.Name, vectorindex.Settings{Model: embedder.ModelName()})
	if err != nil {
		return err
	}
	defer idx.Close()

	chain := &qa.Chain{
		Embedder:      embedder,
		Retriever:     idx,
		LLM:           qa.NewOllama(cfg.QA),
		TopK:          cfg.QA.TopK,
		ReturnSources: cfg.QA.ReturnSources,
		Log:           logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ans, err := chain.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}

	fmt.Fprintln(os.Stdout, ans.Text)
	if len(ans.Sources) == 0 {
		return nil
	}
	fmt.Fprintln(os.Stdout, "\nSources:")
	for i, s := range ans.Sources {
		title := s.Title
		if title == "" {
			title = s.RecordID
		}
		fmt.Fprintf(os.Stdout, "  [%d] %s", i+1, title)
		if s.Year > 0 {
			fmt.Fprintf(os.Stdout, " (%d)", s.Year)
		}
		fmt.Fprintf(os.Stdout, "  score %.3f\n", s.Score)
		if s.URL != "" {
			fmt.Fprintf(os.Stdout, "      %s\n", s.URL)
		}
	}
	return nil
}

func init() {
	askCmd.Flags().String("model", qa.DefaultModel, "Ollama generation model")
	askCmd.Flags().Int("top-k", qa.DefaultTopK, "chunks placed in the prompt")
	askCmd.Flags().Int("max-new-tokens", 4096, "maximum tokens to generate")
	askCmd.Flags().Float64("temperature", 0.6, "sampling temperature")
	askCmd.Flags().String("index-path", "index/vectors.db", "vector index database file")
	askCmd.Flags().String("index-name", "metabolomics", "index name inside the database")
	askCmd.Flags().Bool("no-sources", false, "omit the retrieved sources")
	askCmd.Flags().Bool("json", false, "output the answer as JSON")

	rootCmd.AddCommand(askCmd)
}
