// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the metabolomics-llm CLI.
// Stages: harvest (CORE v3 to yearly checkpoints), records and export
// (inspect checkpoints), index (chunk, embed, vector index), ask (retrieval QA).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/samdeverett/metabolomics-llm/internal/core"
	"github.com/samdeverett/metabolomics-llm/internal/embed"
	"github.com/samdeverett/metabolomics-llm/internal/harvest"
	"github.com/samdeverett/metabolomics-llm/internal/logging"
	"github.com/samdeverett/metabolomics-llm/internal/qa"
	"github.com/samdeverett/metabolomics-llm/internal/secrets"
	"github.com/samdeverett/metabolomics-llm/internal/vectorindex"
	"github.com/samdeverett/metabolomics-llm/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	defaultStartYear = 2013
	defaultEndYear   = 2023
)

var (
	// logger is built from the log.* settings before any subcommand runs.
	logger = zerolog.Nop()

	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets map[string]string

	// envFile holds values parsed from .env in the working directory.
	envFile map[string]string
)

// secretDefault returns fallback when it is set, otherwise the value for
// key from the environment, .secrets/ or .env.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return secrets.Lookup(key, loadedSecrets, envFile)
}

var rootCmd = &cobra.Command{
	Use:   "metabolomics-llm",
	Short: "Harvest metabolomics literature and answer questions over it",
	Long: `metabolomics-llm pulls works from the CORE v3 search API one publication
year at a time, checkpoints every completed year to disk, and builds a local
vector index over the checkpointed text for retrieval question answering.

The stages are subcommands: harvest, records, export, index, and ask.
Interrupted harvests resume at the first year without a checkpoint.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		noColor, _ := cmd.Flags().GetBool("no-color")
		l, err := logging.New(types.LoggingConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		}, os.Stderr, noColor)
		if err != nil {
			return err
		}
		logger = l
		if f := viper.ConfigFileUsed(); f != "" {
			logger.Debug().Str("path", f).Msg("using config file")
		}

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s

		envFile, err = secrets.LoadEnvFile(".env")
		return err
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./metabolomics-llm.yaml or ~/.config/metabolomics-llm/metabolomics-llm.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", logging.FormatConsole, "log format: console or json")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored console logs")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("metabolomics-llm")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "metabolomics-llm"))
		}
	}

	viper.SetEnvPrefix("METABOLOMICS_LLM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Reading config file:", err)
	}
}

// setDefaults registers every key so that AutomaticEnv and Unmarshal see
// keys that appear in neither the config file nor the flags.
func setDefaults() {
	viper.SetDefault("core.endpoint", core.DefaultEndpoint)
	viper.SetDefault("core.search_path", core.DefaultSearchPath)
	viper.SetDefault("core.api_key", "")
	viper.SetDefault("core.page_size", core.DefaultPageSize)
	viper.SetDefault("core.page_delay", "0s")
	viper.SetDefault("core.rate_limit_retries", 0)
	viper.SetDefault("core.timeout", core.DefaultTimeout)
	viper.SetDefault("core.user_agent", core.DefaultUserAgent)

	viper.SetDefault("harvest.topic", harvest.DefaultTopic)
	viper.SetDefault("harvest.language", harvest.DefaultLanguage)
	viper.SetDefault("harvest.start_year", defaultStartYear)
	viper.SetDefault("harvest.end_year", defaultEndYear)
	viper.SetDefault("harvest.data_dir", "data")
	viper.SetDefault("harvest.stop_on_error", false)

	viper.SetDefault("embed.base_url", embed.DefaultBaseURL)
	viper.SetDefault("embed.model", embed.DefaultModel)
	viper.SetDefault("embed.batch_size", embed.DefaultBatchSize)
	viper.SetDefault("embed.chunk_words", 200)
	viper.SetDefault("embed.chunk_overlap", 20)
	viper.SetDefault("embed.timeout", embed.DefaultTimeout)
	viper.SetDefault("embed.user_agent", core.DefaultUserAgent)

	viper.SetDefault("index.path", filepath.Join("index", "vectors.db"))
	viper.SetDefault("index.name", "metabolomics")
	viper.SetDefault("index.metric", vectorindex.MetricCosine)

	def := types.DefaultGeneration()
	viper.SetDefault("qa.base_url", qa.DefaultBaseURL)
	viper.SetDefault("qa.model", qa.DefaultModel)
	viper.SetDefault("qa.top_k", qa.DefaultTopK)
	viper.SetDefault("qa.return_sources", true)
	viper.SetDefault("qa.timeout", qa.DefaultTimeout)
	viper.SetDefault("qa.max_new_tokens", def.MaxNewTokens)
	viper.SetDefault("qa.temperature", *def.Temperature)
	viper.SetDefault("qa.top_p", def.TopP)
	viper.SetDefault("qa.repetition_penalty", def.RepetitionPenalty)
}

// bindFlags binds the named flags of cmd to viper keys. Binding happens at
// run time so that two subcommands can share a key without the last init
// winning.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flag)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// loadConfig decodes the merged flags, env, and config file.
func loadConfig() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Core.APIKey = secretDefault(secrets.CoreAPIKey, cfg.Core.APIKey)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
