// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samdeverett/metabolomics-llm/internal/checkpoint"
	"github.com/samdeverett/metabolomics-llm/internal/chunk"
	"github.com/samdeverett/metabolomics-llm/internal/vectorindex"
	"github.com/samdeverett/metabolomics-llm/pkg/types"
)

// --- fakes ---

// wordEmbedder maps text to [words, len] so tests can predict vectors.
type wordEmbedder struct {
	calls [][]string
	err   error
}

func (e *wordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls = append(e.calls, texts)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(strings.Fields(t))), float32(len(t))}
	}
	return out, nil
}

func (e *wordEmbedder) ModelName() string { return "words" }

func setup(t *testing.T) (*checkpoint.Store, *vectorindex.Index) {
	t.Helper()
	dir := t.TempDir()
	store, err := checkpoint.Open(filepath.Join(dir, "data"), zerolog.Nop())
	require.NoError(t, err)
	idx, err := vectorindex.Open(filepath.Join(dir, "index", "vectors.db"), "test", vectorindex.Settings{Dimension: 2, Metric: vectorindex.MetricCosine})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return store, idx
}

func TestRunIndexesCheckpointedYears(t *testing.T) {
	store, idx := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, 2019, []types.FetchRecord{
		{ID: "a", Title: types.StringPtr("Alpha"), URL: types.StringPtr("https://x/a"), FullText: types.StringPtr("one two three four five")},
	}))
	require.NoError(t, store.Write(ctx, 2021, []types.FetchRecord{
		{ID: "b", Title: types.StringPtr("Beta only")},
		{ID: "c"}, // no text at all
	}))

	emb := &wordEmbedder{}
	var progress [][3]int
	ix := &Indexer{
		Source:     store,
		Chunker:    chunk.New(2, 0),
		Embedder:   emb,
		Sink:       idx,
		BatchSize:  2,
		OnProgress: func(year, done, total int) { progress = append(progress, [3]int{year, done, total}) },
		Log:        zerolog.Nop(),
	}

	sum, err := ix.Run(ctx, 2018, 2021)
	require.NoError(t, err)
	assert.Equal(t, Summary{Years: 2, Records: 3, Chunks: 4, Batches: 3}, sum)

	// 2019: "one two" "three four" "five" in batches of 2; 2021: "Beta only".
	assert.Equal(t, [][]string{{"one two", "three four"}, {"five"}, {"Beta only"}}, emb.calls)
	assert.Equal(t, [][3]int{{2019, 2, 3}, {2019, 3, 3}, {2021, 1, 1}}, progress)

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := idx.Query([]float32{1, 4}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2019-a-2", got[0].ID)
	assert.Equal(t, map[string]string{
		"record_id": "a",
		"title":     "Alpha",
		"url":       "https://x/a",
		"year":      "2019",
		"text":      "five",
	}, got[0].Metadata)
}

func TestRunIsRepeatable(t *testing.T) {
	store, idx := setup(t)
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, 2020, []types.FetchRecord{{ID: "a", FullText: types.StringPtr("x y z")}}))

	ix := &Indexer{Source: store, Chunker: chunk.New(2, 1), Embedder: &wordEmbedder{}, Sink: idx}
	_, err := ix.Run(ctx, 2020, 2020)
	require.NoError(t, err)
	_, err = ix.Run(ctx, 2020, 2020)
	require.NoError(t, err)

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunKeepsSameIDAcrossYearsApart(t *testing.T) {
	store, idx := setup(t)
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, 2019, []types.FetchRecord{{ID: "7", FullText: types.StringPtr("alpha beta gamma delta")}}))
	require.NoError(t, store.Write(ctx, 2020, []types.FetchRecord{{ID: "7", FullText: types.StringPtr("other words")}}))

	ix := &Indexer{Source: store, Chunker: chunk.New(2, 0), Embedder: &wordEmbedder{}, Sink: idx}
	sum, err := ix.Run(ctx, 2019, 2020)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Chunks)
	assert.Zero(t, sum.Pruned)

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want := map[string]string{
		"2019-7-0": "alpha beta",
		"2019-7-1": "gamma delta",
		"2020-7-0": "other words",
	}
	got, err := idx.Query([]float32{2, 10}, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, m := range got {
		assert.Equal(t, want[m.ID], m.Metadata[MetaText], m.ID)
		assert.Equal(t, m.ID[:4], m.Metadata[MetaYear], m.ID)
	}
}

func TestRunPrunesStaleVectorsOfTheYear(t *testing.T) {
	store, idx := setup(t)
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, 2020, []types.FetchRecord{{ID: "a", FullText: types.StringPtr("x y")}}))

	// Left over from an earlier run with longer text and older ids.
	require.NoError(t, idx.Upsert([]vectorindex.Item{
		{ID: "2020-a-3", Vector: []float32{1, 1}, Metadata: map[string]string{MetaYear: "2020"}},
		{ID: "a-0", Vector: []float32{1, 1}, Metadata: map[string]string{MetaYear: "2020"}},
		{ID: "2021-b-0", Vector: []float32{1, 1}, Metadata: map[string]string{MetaYear: "2021"}},
	}))

	ix := &Indexer{Source: store, Chunker: chunk.New(10, 0), Embedder: &wordEmbedder{}, Sink: idx}
	sum, err := ix.Run(ctx, 2020, 2020)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Pruned)

	for id, want := range map[string]bool{"2020-a-0": true, "2020-a-3": false, "a-0": false, "2021-b-0": true} {
		ok, err := idx.Has(id)
		require.NoError(t, err)
		assert.Equal(t, want, ok, id)
	}
}

func TestItemID(t *testing.T) {
	assert.Equal(t, "2019-7-0", ItemID(2019, types.Chunk{ID: "7-0"}))
}

func TestRunEmbedFailure(t *testing.T) {
	store, idx := setup(t)
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, 2020, []types.FetchRecord{{ID: "a", FullText: types.StringPtr("x")}}))

	boom := errors.New("ollama down")
	ix := &Indexer{Source: store, Chunker: chunk.New(10, 0), Embedder: &wordEmbedder{err: boom}, Sink: idx}
	sum, err := ix.Run(ctx, 2020, 2020)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "year 2020")
	assert.Zero(t, sum.Years)
}

func TestRunCancelled(t *testing.T) {
	store, idx := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ix := &Indexer{Source: store, Chunker: chunk.New(10, 0), Embedder: &wordEmbedder{}, Sink: idx}
	_, err := ix.Run(ctx, 2020, 2021)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetadata(t *testing.T) {
	md := Metadata(types.Chunk{ID: "r-0", RecordID: "r", Text: "t", Title: "T", URL: "u"}, 2005)
	assert.Equal(t, "2005", md[MetaYear])
	assert.Equal(t, "r", md[MetaRecordID])
	assert.Len(t, md, 5)
}
