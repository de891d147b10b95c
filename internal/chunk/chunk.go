// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chunk splits a work's text into overlapping word windows sized
// for an embedding model.
package chunk

import (
	"fmt"
	"strings"

	"github.com/samdeverett/metabolomics-llm/pkg/types"
)

const (
	DefaultWords   = 200
	DefaultOverlap = 20
)

// Chunker splits text into windows of Words words, each sharing Overlap
// words with the previous window.
type Chunker struct {
	Words   int
	Overlap int
}

// New returns a Chunker, substituting defaults for non-positive sizes and
// clamping overlap below the window size.
func New(words, overlap int) *Chunker {
	words, overlap = sizes(words, overlap)
	return &Chunker{Words: words, Overlap: overlap}
}

func sizes(words, overlap int) (int, int) {
	if words <= 0 {
		words = DefaultWords
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= words {
		overlap = words - 1
	}
	return words, overlap
}

// Split returns the word windows of text. Whitespace is normalized to
// single spaces. Empty text yields no windows. Out-of-range Words and
// Overlap are corrected the same way New corrects them.
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	size, overlap := sizes(c.Words, c.Overlap)
	step := size - overlap
	var out []string
	for start := 0; start < len(words); start += step {
		end := min(start+size, len(words))
		out = append(out, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return out
}

// Record chunks a record's text (full text, or the title when there is
// none). Chunk ids are "<record id>-<n>" counting from zero.
func (c *Chunker) Record(r types.FetchRecord) []types.Chunk {
	windows := c.Split(r.Text())
	chunks := make([]types.Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = types.Chunk{
			ID:       fmt.Sprintf("%s-%d", r.ID, i),
			RecordID: r.ID,
			Index:    i,
			Text:     w,
			Title:    r.TitleOrEmpty(),
			URL:      r.URLOrEmpty(),
		}
	}
	return chunks
}
