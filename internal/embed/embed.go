// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed turns text into vectors with an embedding model served by
// Ollama.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samdeverett/metabolomics-llm/pkg/types"
)

const (
	DefaultBaseURL   = "http://localhost:11434"
	DefaultModel     = "nomic-embed-text"
	DefaultBatchSize = 32
	DefaultTimeout   = 60 * time.Second

	// sampleText is embedded once to learn a model's output dimension.
	sampleText = "dummy"
)

// Embedder maps texts to vectors, one per input and in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// Dimension reports the length of the vectors e produces by embedding a
// sample string.
func Dimension(ctx context.Context, e Embedder) (int, error) {
	vecs, err := e.Embed(ctx, []string{sampleText})
	if err != nil {
		return 0, fmt.Errorf("measuring %s dimension: %w", e.ModelName(), err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return 0, fmt.Errorf("measuring %s dimension: empty embedding", e.ModelName())
	}
	return len(vecs[0]), nil
}

// Ollama calls the /api/embed endpoint of an Ollama server.
type Ollama struct {
	HTTP    *http.Client
	BaseURL string
	Model   string
	UA      string
}

// NewOllama returns an Ollama embedder for cfg with defaults filled in.
func NewOllama(cfg types.EmbedConfig) *Ollama {
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
	return &Ollama{
		HTTP:    &http.Client{Timeout: timeout},
		BaseURL: strings.TrimRight(base, "/"),
		Model:   model,
		UA:      cfg.UserAgent,
	}
}

// ModelName returns the configured model.
func (o *Ollama) ModelName() string { return o.Model }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed sends texts in a single request.
func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts to embed")
	}

	body, err := json.Marshal(embedRequest{Model: o.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.UA != "" {
		req.Header.Set("User-Agent", o.UA)
	}

	resp, err := o.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(er.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(er.Embeddings))
	}
	return er.Embeddings, nil
}
