// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package qa answers questions over the vector index: the question is
// embedded, the closest chunks are retrieved, and all of them are placed
// in a single prompt for the language model.
package qa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/samdeverett/metabolomics-llm/internal/embed"
	"github.com/samdeverett/metabolomics-llm/internal/pipeline"
	"github.com/samdeverett/metabolomics-llm/internal/vectorindex"
)

const DefaultTopK = 4

var promptTmpl = template.Must(template.New("qa").Parse(`Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

{{range $i, $s := .Sources}}{{if $i}}

{{end}}{{$s.Text}}{{end}}

Question: {{.Question}}
Helpful Answer:`))

// Retriever returns the stored chunks nearest a query vector.
// *vectorindex.Index implements it.
type Retriever interface {
	Query(vector []float32, k int) ([]vectorindex.Match, error)
}

// Source is a retrieved chunk that informed an answer.
type Source struct {
	ChunkID  string  `json:"chunk_id" yaml:"chunk_id"`
	RecordID string  `json:"record_id" yaml:"record_id"`
	Title    string  `json:"title,omitempty" yaml:"title,omitempty"`
	URL      string  `json:"url,omitempty" yaml:"url,omitempty"`
	Year     int     `json:"year,omitempty" yaml:"year,omitempty"`
	Score    float64 `json:"score" yaml:"score"`
	Text     string  `json:"text" yaml:"text"`
}

// Answer is the model's reply plus, when requested, its sources.
type Answer struct {
	Question string   `json:"question" yaml:"question"`
	Text     string   `json:"answer" yaml:"answer"`
	Sources  []Source `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// Chain is a retrieval question-answering chain.
type Chain struct {
	Embedder  embed.Embedder
	Retriever Retriever
	LLM       LLM

	TopK          int
	ReturnSources bool

	Log zerolog.Logger
}

// Ask answers question from the indexed literature.
func (c *Chain) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question is empty")
	}
	k := c.TopK
	if k <= 0 {
		k = DefaultTopK
	}

	vecs, err := c.Embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding question: got %d vectors", len(vecs))
	}

	matches, err := c.Retriever.Query(vecs[0], k)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	sources := make([]Source, len(matches))
	for i, m := range matches {
		sources[i] = sourceFromMatch(m)
	}
	c.Log.Debug().Int("retrieved", len(sources)).Msg("context retrieved")

	prompt, err := BuildPrompt(question, sources)
	if err != nil {
		return nil, err
	}

	text, err := c.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	ans := &Answer{Question: question, Text: text}
	if c.ReturnSources {
		ans.Sources = sources
	}
	return ans, nil
}

// BuildPrompt renders the prompt that stuffs every source into one request.
func BuildPrompt(question string, sources []Source) (string, error) {
	var buf bytes.Buffer
	err := promptTmpl.Execute(&buf, struct {
		Question string
		Sources  []Source
	}{question, sources})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}

func sourceFromMatch(m vectorindex.Match) Source {
	year, _ := strconv.Atoi(m.Metadata[pipeline.MetaYear])
	return Source{
		ChunkID:  m.ID,
		RecordID: m.Metadata[pipeline.MetaRecordID],
		Title:    m.Metadata[pipeline.MetaTitle],
		URL:      m.Metadata[pipeline.MetaURL],
		Year:     year,
		Score:    m.Score,
		Text:     m.Metadata[pipeline.MetaText],
	}
}
