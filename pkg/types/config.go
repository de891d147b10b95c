// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds each HTTP request, including reading the body.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "metabolomics-llm/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// CoreConfig holds settings for the CORE v3 search client.
type CoreConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Endpoint is the API base URL (default "https://api.core.ac.uk/v3/").
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// SearchPath is the resource path appended to Endpoint (default "search/works").
	SearchPath string `json:"search_path" yaml:"search_path" mapstructure:"search_path"`

	// APIKey is sent as a bearer token.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// PageSize is the "limit" sent with every page request (default 100).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// PageDelay is slept between consecutive page requests (default 0).
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay" mapstructure:"page_delay"`

	// RateLimitRetries is how many times an HTTP 429 is retried with
	// backoff. Zero disables retrying; the 429 then fails the fetch.
	RateLimitRetries int `json:"rate_limit_retries" yaml:"rate_limit_retries" mapstructure:"rate_limit_retries"`
}

// HarvestConfig holds settings for the per-year harvest loop.
type HarvestConfig struct {
	// Topic is the free-text part of the query (default "metabolomics").
	Topic string `json:"topic" yaml:"topic" mapstructure:"topic"`

	// Language restricts works to one language (default "English").
	// Empty drops the language filter.
	Language string `json:"language" yaml:"language" mapstructure:"language"`

	StartYear int `json:"start_year" yaml:"start_year" mapstructure:"start_year"`
	EndYear   int `json:"end_year" yaml:"end_year" mapstructure:"end_year"`

	// DataDir holds one checkpoint file per year (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// StopOnError aborts the whole range at the first failed year. When
	// false the failed year is skipped and retried on the next run.
	StopOnError bool `json:"stop_on_error" yaml:"stop_on_error" mapstructure:"stop_on_error"`
}

// EmbedConfig holds settings for the embedding model.
type EmbedConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the Ollama server (default "http://localhost:11434").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Model is the embedding model name (default "nomic-embed-text").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// BatchSize is the number of chunks embedded per request (default 32).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// ChunkWords and ChunkOverlap size the word windows fed to the model.
	ChunkWords   int `json:"chunk_words" yaml:"chunk_words" mapstructure:"chunk_words"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
}

// IndexConfig holds settings for the local vector index.
type IndexConfig struct {
	// Path is the bbolt database file (default "index/vectors.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Name selects the index inside the database (default "metabolomics").
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// Metric is the similarity metric: cosine, euclidean, or dotproduct.
	Metric string `json:"metric" yaml:"metric" mapstructure:"metric"`
}

// GenerationConfig holds sampling parameters for the language model.
type GenerationConfig struct {
	MaxNewTokens int `json:"max_new_tokens" yaml:"max_new_tokens" mapstructure:"max_new_tokens"`

	// Temperature is nil when unset. Zero selects greedy decoding.
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" mapstructure:"temperature"`

	TopP              float64 `json:"top_p" yaml:"top_p" mapstructure:"top_p"`
	RepetitionPenalty float64 `json:"repetition_penalty" yaml:"repetition_penalty" mapstructure:"repetition_penalty"`
}

// DefaultGeneration returns the sampling parameters used when none are configured.
func DefaultGeneration() GenerationConfig {
	return GenerationConfig{
		MaxNewTokens:      4096,
		Temperature:       Float64Ptr(0.6),
		TopP:              0.9,
		RepetitionPenalty: 1.1,
	}
}

// QAConfig holds settings for retrieval question answering.
type QAConfig struct {
	HTTPConfig       `yaml:",inline" mapstructure:",squash"`
	GenerationConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the Ollama server used for generation.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Model is the generation model (default "llama2:13b-chat").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// TopK is the number of chunks stuffed into the prompt (default 4).
	TopK int `json:"top_k" yaml:"top_k" mapstructure:"top_k"`

	// ReturnSources includes retrieved chunks in the answer.
	ReturnSources bool `json:"return_sources" yaml:"return_sources" mapstructure:"return_sources"`
}

// LoggingConfig holds settings for the process logger.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error (default "info").
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "console" for human-readable output or "json" for one
	// JSON object per line (default "console").
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Log     LoggingConfig `json:"log" yaml:"log" mapstructure:"log"`
	Core    CoreConfig    `json:"core" yaml:"core" mapstructure:"core"`
	Harvest HarvestConfig `json:"harvest" yaml:"harvest" mapstructure:"harvest"`
	Embed   EmbedConfig   `json:"embed" yaml:"embed" mapstructure:"embed"`
	Index   IndexConfig   `json:"index" yaml:"index" mapstructure:"index"`
	QA      QAConfig      `json:"qa" yaml:"qa" mapstructure:"qa"`
}
