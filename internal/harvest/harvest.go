// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest drives a multi-year fetch. Each publication year is
// fetched in full and checkpointed once; years that already have a
// checkpoint are skipped, so an interrupted run resumes where it stopped.
package harvest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/samdeverett/metabolomics-llm/internal/core"
	"github.com/samdeverett/metabolomics-llm/pkg/types"
)

const (
	DefaultTopic    = "metabolomics"
	DefaultLanguage = "English"
)

// Fetcher retrieves every record for a query. *core.Client implements it.
type Fetcher interface {
	FetchAll(ctx context.Context, query string, project core.Projection) ([]types.FetchRecord, error)
}

// Store is the subset of the checkpoint store the loop needs.
// *checkpoint.Store implements it.
type Store interface {
	Has(year int) (bool, error)
	Write(ctx context.Context, year int, records []types.FetchRecord) error
}

// Summary holds the outcome of a harvest run.
type Summary struct {
	Fetched    int // years fetched and checkpointed
	Skipped    int // years already checkpointed
	Failed     int // years that failed and have no checkpoint
	Records    int // records written across fetched years
	Duplicates int // records dropped because their id repeated within a year

	// FailedYears lists the failed years in order.
	FailedYears []int
}

// Total returns the number of years processed.
func (s Summary) Total() int {
	return s.Fetched + s.Skipped + s.Failed
}

// HasFailures reports whether any year failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// YearError reports a failure for one year of the range.
type YearError struct {
	Year int
	Err  error
}

func (e *YearError) Error() string {
	return fmt.Sprintf("year %d: %v", e.Year, e.Err)
}

func (e *YearError) Unwrap() error { return e.Err }

// BuildQuery returns the search query for one publication year. An empty
// language drops the language clause.
func BuildQuery(topic, language string, year int) string {
	parts := []string{topic}
	if language != "" {
		parts = append(parts, "language:"+language)
	}
	parts = append(parts, "yearPublished:"+strconv.Itoa(year))
	return strings.Join(parts, " AND ")
}

// Run harvests cfg.StartYear through cfg.EndYear inclusive. Failed years
// are logged, counted and left without a checkpoint; with cfg.StopOnError
// the first failure ends the run and is returned as a *YearError.
// Cancellation always ends the run.
func Run(ctx context.Context, f Fetcher, s Store, cfg types.HarvestConfig, log zerolog.Logger) (Summary, error) {
	var summary Summary

	if cfg.EndYear < cfg.StartYear {
		return summary, fmt.Errorf("end year %d is before start year %d", cfg.EndYear, cfg.StartYear)
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	for year := cfg.StartYear; year <= cfg.EndYear; year++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		ylog := log.With().Int("year", year).Logger()

		done, err := s.Has(year)
		if err != nil {
			return summary, &YearError{Year: year, Err: err}
		}
		if done {
			ylog.Info().Msg("already checkpointed, skipping")
			summary.Skipped++
			continue
		}

		query := BuildQuery(topic, cfg.Language, year)
		ylog.Info().Str("query", query).Msg("fetching")

		written, dups, err := harvestYear(ctx, f, s, year, query)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			ylog.Error().Err(err).Msg("year failed")
			summary.Failed++
			summary.FailedYears = append(summary.FailedYears, year)
			if cfg.StopOnError {
				return summary, &YearError{Year: year, Err: err}
			}
			continue
		}

		if dups > 0 {
			ylog.Warn().Int("duplicates", dups).Msg("dropped repeated ids")
		}
		ylog.Info().Int("records", written).Msg("checkpointed")
		summary.Fetched++
		summary.Records += written
		summary.Duplicates += dups
	}

	return summary, nil
}

func harvestYear(ctx context.Context, f Fetcher, s Store, year int, query string) (written, dups int, err error) {
	records, err := f.FetchAll(ctx, query, core.DefaultProjection)
	if err != nil {
		return 0, 0, fmt.Errorf("fetching: %w", err)
	}
	records, dups = Dedupe(records)
	if err := s.Write(ctx, year, records); err != nil {
		return 0, dups, fmt.Errorf("writing checkpoint: %w", err)
	}
	return len(records), dups, nil
}

// Dedupe drops records whose id was already seen, keeping the first
// occurrence and the original order. It returns the number dropped.
func Dedupe(records []types.FetchRecord) ([]types.FetchRecord, int) {
	seen := make(map[string]struct{}, len(records))
	out := records[:0:0]
	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out, len(records) - len(out)
}
