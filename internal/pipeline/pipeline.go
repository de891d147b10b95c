// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline feeds checkpointed works into the vector index: each
// year's records are chunked, embedded in batches, and upserted with
// enough metadata to cite the source work.
package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/samdeverett/metabolomics-llm/internal/chunk"
	"github.com/samdeverett/metabolomics-llm/internal/embed"
	"github.com/samdeverett/metabolomics-llm/internal/vectorindex"
	"github.com/samdeverett/metabolomics-llm/pkg/types"
)

// Metadata keys stored with every vector.
const (
	MetaRecordID = "record_id"
	MetaTitle    = "title"
	MetaURL      = "url"
	MetaYear     = "year"
	MetaText     = "text"
)

// Source supplies checkpointed records. *checkpoint.Store implements it.
type Source interface {
	Has(year int) (bool, error)
	ReadYear(ctx context.Context, year int) ([]types.FetchRecord, error)
}

// Sink stores embedded chunks. *vectorindex.Index implements it.
type Sink interface {
	Upsert(items []vectorindex.Item) error
	DeleteFunc(match func(id string, metadata map[string]string) bool) (int, error)
}

// ProgressFunc receives the running chunk count for the current year and
// that year's chunk total.
type ProgressFunc func(year, done, total int)

// Indexer wires the stages together.
type Indexer struct {
	Source    Source
	Chunker   *chunk.Chunker
	Embedder  embed.Embedder
	Sink      Sink
	BatchSize int

	OnProgress ProgressFunc
	Log        zerolog.Logger
}

// Summary holds counts from an indexing run.
type Summary struct {
	Years   int
	Records int
	Chunks  int
	Batches int

	// Pruned counts vectors removed because a year's fresh chunks no
	// longer include them.
	Pruned int
}

// Run indexes every checkpointed year in [start, end]. Vector ids carry the
// year, since a record id is only unique within one year. After a year's
// chunks are stored, any older vectors of that year that were not rewritten
// are removed, so rerunning a range is safe.
func (ix *Indexer) Run(ctx context.Context, start, end int) (Summary, error) {
	var sum Summary
	batch := ix.BatchSize
	if batch <= 0 {
		batch = embed.DefaultBatchSize
	}

	for year := start; year <= end; year++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		ok, err := ix.Source.Has(year)
		if err != nil {
			return sum, err
		}
		if !ok {
			continue
		}

		records, err := ix.Source.ReadYear(ctx, year)
		if err != nil {
			return sum, err
		}
		var chunks []types.Chunk
		for _, r := range records {
			chunks = append(chunks, ix.Chunker.Record(r)...)
		}
		ix.Log.Info().Int("year", year).Int("records", len(records)).Int("chunks", len(chunks)).Msg("indexing")

		n, err := ix.indexChunks(ctx, year, chunks, batch)
		sum.Batches += n
		if err != nil {
			return sum, fmt.Errorf("year %d: %w", year, err)
		}
		pruned, err := ix.prune(year, chunks)
		if err != nil {
			return sum, fmt.Errorf("year %d: pruning stale vectors: %w", year, err)
		}
		if pruned > 0 {
			ix.Log.Info().Int("year", year).Int("pruned", pruned).Msg("removed stale vectors")
		}
		sum.Pruned += pruned
		sum.Years++
		sum.Records += len(records)
		sum.Chunks += len(chunks)
	}
	return sum, nil
}

func (ix *Indexer) indexChunks(ctx context.Context, year int, chunks []types.Chunk, size int) (int, error) {
	batches := 0
	for start := 0; start < len(chunks); start += size {
		if err := ctx.Err(); err != nil {
			return batches, err
		}
		end := min(start+size, len(chunks))
		part := chunks[start:end]

		texts := make([]string, len(part))
		for i, c := range part {
			texts[i] = c.Text
		}
		vecs, err := ix.Embedder.Embed(ctx, texts)
		if err != nil {
			return batches, fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != len(part) {
			return batches, fmt.Errorf("embedding chunks %d-%d: got %d vectors", start, end-1, len(vecs))
		}

		items := make([]vectorindex.Item, len(part))
		for i, c := range part {
			items[i] = vectorindex.Item{ID: ItemID(year, c), Vector: vecs[i], Metadata: Metadata(c, year)}
		}
		if err := ix.Sink.Upsert(items); err != nil {
			return batches, fmt.Errorf("upserting chunks %d-%d: %w", start, end-1, err)
		}
		batches++

		if ix.OnProgress != nil {
			ix.OnProgress(year, end, len(chunks))
		}
	}
	return batches, nil
}

// prune deletes vectors tagged with year whose ids are not among chunks.
func (ix *Indexer) prune(year int, chunks []types.Chunk) (int, error) {
	keep := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		keep[ItemID(year, c)] = struct{}{}
	}
	y := strconv.Itoa(year)
	return ix.Sink.DeleteFunc(func(id string, md map[string]string) bool {
		if md[MetaYear] != y {
			return false
		}
		_, ok := keep[id]
		return !ok
	})
}

// ItemID is the vector id of chunk c from year: "<year>-<chunk id>".
func ItemID(year int, c types.Chunk) string {
	return strconv.Itoa(year) + "-" + c.ID
}

// Metadata returns the key/value pairs stored alongside a chunk's vector.
func Metadata(c types.Chunk, year int) map[string]string {
	return map[string]string{
		MetaRecordID: c.RecordID,
		MetaTitle:    c.Title,
		MetaURL:      c.URL,
		MetaYear:     strconv.Itoa(year),
		MetaText:     c.Text,
	}
}
