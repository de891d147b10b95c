// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samdeverett/metabolomics-llm/pkg/types"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func TestNewDefaults(t *testing.T) {
	tests := []struct {
		name                string
		words, overlap      int
		wantWords, wantOver int
	}{
		{"defaults", 0, -1, DefaultWords, DefaultOverlap},
		{"explicit", 50, 5, 50, 5},
		{"zero overlap kept", 10, 0, 10, 0},
		{"overlap clamped", 10, 10, 10, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.words, tt.overlap)
			assert.Equal(t, tt.wantWords, c.Words)
			assert.Equal(t, tt.wantOver, c.Overlap)
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		over int
		want []string
	}{
		{"empty", "", 3, 1, nil},
		{"whitespace only", " \n\t ", 3, 1, nil},
		{"shorter than window", "a b", 3, 1, []string{"a b"}},
		{"exact window", "a b c", 3, 1, []string{"a b c"}},
		{"overlapping", "a b c d e", 3, 1, []string{"a b c", "c d e"}},
		{"tail window", "a b c d e f", 3, 1, []string{"a b c", "c d e", "e f"}},
		{"no overlap", "a b c d", 2, 0, []string{"a b", "c d"}},
		{"normalizes whitespace", "a\n\nb\tc", 5, 0, []string{"a b c"}},
		{"zero value uses defaults", "a b c", 0, 0, []string{"a b c"}},
		{"overlap equal to window", "a b c d", 2, 2, []string{"a b", "b c", "c d"}},
		{"overlap wider than window", "a b c d e", 3, 5, []string{"a b c", "b c d", "c d e"}},
		{"negative overlap", "a b c", 2, -3, []string{"a b", "b c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Chunker{Words: tt.size, Overlap: tt.over}
			assert.Equal(t, tt.want, c.Split(tt.text))
		})
	}
}

func TestSplitCoversEveryWord(t *testing.T) {
	c := New(200, 20)
	windows := c.Split(words(1000))

	require.NotEmpty(t, windows)
	assert.True(t, strings.HasPrefix(windows[0], "w0 "))
	assert.True(t, strings.HasSuffix(windows[len(windows)-1], " w999"))
	for _, w := range windows {
		assert.LessOrEqual(t, len(strings.Fields(w)), 200)
	}
}

func TestRecord(t *testing.T) {
	c := New(3, 0)
	r := types.FetchRecord{
		ID:       "42",
		Title:    types.StringPtr("Serum metabolome"),
		URL:      types.StringPtr("https://core.ac.uk/download/42.pdf"),
		FullText: types.StringPtr("one two three four"),
	}

	chunks := c.Record(r)
	require.Len(t, chunks, 2)
	assert.Equal(t, "42-0", chunks[0].ID)
	assert.Equal(t, "42-1", chunks[1].ID)
	assert.Equal(t, "four", chunks[1].Text)
	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, "42", chunks[1].RecordID)
	assert.Equal(t, "Serum metabolome", chunks[1].Title)
	assert.Equal(t, "https://core.ac.uk/download/42.pdf", chunks[0].URL)
}

func TestRecordFallsBackToTitle(t *testing.T) {
	c := New(10, 2)
	chunks := c.Record(types.FetchRecord{ID: "7", Title: types.StringPtr("Only a title")})
	require.Len(t, chunks, 1)
	assert.Equal(t, "Only a title", chunks[0].Text)

	assert.Empty(t, c.Record(types.FetchRecord{ID: "8"}))
}

func TestZeroValueChunkerRecord(t *testing.T) {
	var c Chunker
	chunks := c.Record(types.FetchRecord{ID: "9", FullText: types.StringPtr(words(250))})
	require.Len(t, chunks, 2)
	assert.Len(t, strings.Fields(chunks[0].Text), DefaultWords)
	assert.True(t, strings.HasPrefix(chunks[1].Text, "w180 "))
}
