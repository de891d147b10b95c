// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samdeverett/metabolomics-llm/pkg/types"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama2:13b-chat"

	// Generation with a large max token budget can run for minutes.
	DefaultTimeout = 10 * time.Minute
)

// LLM completes a prompt.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

// Ollama calls the /api/generate endpoint of an Ollama server.
type Ollama struct {
	HTTP    *http.Client
	BaseURL string
	Model   string
	Options types.GenerationConfig
}

// NewOllama returns an Ollama LLM for cfg. Unset generation parameters take
// the values from types.DefaultGeneration. A temperature of zero is kept;
// only a nil or negative temperature counts as unset.
func NewOllama(cfg types.QAConfig) *Ollama {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	gen := cfg.GenerationConfig
	def := types.DefaultGeneration()
	if gen.MaxNewTokens <= 0 {
		gen.MaxNewTokens = def.MaxNewTokens
	}
	if gen.Temperature == nil || *gen.Temperature < 0 {
		gen.Temperature = def.Temperature
	}
	if gen.TopP <= 0 {
		gen.TopP = def.TopP
	}
	if gen.RepetitionPenalty <= 0 {
		gen.RepetitionPenalty = def.RepetitionPenalty
	}

	return &Ollama{
		HTTP:    &http.Client{Timeout: timeout},
		BaseURL: strings.TrimRight(base, "/"),
		Model:   model,
		Options: gen,
	}
}

// ModelName returns the configured model.
func (o *Ollama) ModelName() string { return o.Model }

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict    int     `json:"num_predict"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	RepeatPenalty float64 `json:"repeat_penalty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate sends a non-streaming completion request.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  o.Model,
		Prompt: prompt,
		Options: generateOptions{
			NumPredict:    o.Options.MaxNewTokens,
			Temperature:   *o.Options.Temperature,
			TopP:          o.Options.TopP,
			RepeatPenalty: o.Options.RepetitionPenalty,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if gr.Error != "" {
		return "", fmt.Errorf("ollama: %s", gr.Error)
	}
	return strings.TrimSpace(gr.Response), nil
}
