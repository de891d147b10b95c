// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package core pulls works from the CORE v3 search API. FetchAll walks a
// query's full result set with the API's scroll cursor and projects every
// hit into a FetchRecord.
package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/samdeverett/metabolomics-llm/internal/httputil"
	"github.com/samdeverett/metabolomics-llm/pkg/types"
)

const (
	DefaultEndpoint   = "https://api.core.ac.uk/v3/"
	DefaultSearchPath = "search/works"
	DefaultPageSize   = 100
	DefaultTimeout    = 30 * time.Second
	DefaultUserAgent  = "metabolomics-llm/0.1"

	// errorBodyLimit bounds how much of a failed response is kept in a TransportError.
	errorBodyLimit = 512
)

// Progress is reported after every page.
type Progress struct {
	Query     string
	Page      int
	Retrieved int // records accumulated so far
	TotalHits int // upstream estimate, informational only
	Elapsed   time.Duration
}

// ProgressFunc observes fetch progress. It runs on the fetching goroutine
// and should return quickly.
type ProgressFunc func(Progress)

// LogProgress returns a ProgressFunc that logs each page at info level.
func LogProgress(log zerolog.Logger) ProgressFunc {
	return func(p Progress) {
		log.Info().
			Int("page", p.Page).
			Int("retrieved", p.Retrieved).
			Int("total_hits", p.TotalHits).
			Dur("elapsed", p.Elapsed).
			Msgf("%d/%d %.2fs", p.Retrieved, p.TotalHits, p.Elapsed.Seconds())
	}
}

// Client queries the CORE search API.
type Client struct {
	HTTP   *http.Client
	Config types.CoreConfig

	// OnPage, when set, receives progress after each page.
	OnPage ProgressFunc

	Log zerolog.Logger
}

// NewClient returns a Client for cfg with defaults filled in. The HTTP
// client's timeout bounds every page request.
func NewClient(cfg types.CoreConfig, log zerolog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.SearchPath == "" {
		cfg.SearchPath = DefaultSearchPath
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Client{
		HTTP:   &http.Client{Timeout: cfg.Timeout},
		Config: cfg,
		Log:    log,
	}
}

// scrollRequest is the JSON body of a page request. The first page sets
// Scroll; later pages carry the cursor instead.
type scrollRequest struct {
	Q        string `json:"q"`
	Limit    int    `json:"limit"`
	Scroll   bool   `json:"scroll,omitempty"`
	ScrollID string `json:"scroll_id,omitempty"`
}

type scrollResponse struct {
	ScrollID  string            `json:"scrollId"`
	TotalHits int               `json:"totalHits"`
	Results   []json.RawMessage `json:"results"`
}

// FetchAll retrieves every work matching query. The first request opens a
// scroll; each following request echoes the cursor from the previous
// response. A page with no results ends the fetch, even when fewer than
// totalHits records were seen.
//
// Any transport failure, non-2xx status, or projection error aborts the
// fetch and no records are returned. project defaults to DefaultProjection.
func (c *Client) FetchAll(ctx context.Context, query string, project Projection) ([]types.FetchRecord, error) {
	if project == nil {
		project = DefaultProjection
	}

	var (
		records []types.FetchRecord
		cursor  string
	)

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if page > 1 && c.Config.PageDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.Config.PageDelay):
			}
		}

		start := time.Now()
		resp, err := c.fetchPage(ctx, query, cursor)
		if err != nil {
			return nil, err
		}
		elapsed := time.Since(start)

		for i, raw := range resp.Results {
			hit, err := decodeHit(raw)
			if err != nil {
				return nil, fmt.Errorf("page %d, hit %d: %w", page, i, err)
			}
			rec, err := project(hit)
			if err != nil {
				return nil, fmt.Errorf("page %d, hit %d: %w", page, i, err)
			}
			records = append(records, rec)
		}

		if c.OnPage != nil {
			c.OnPage(Progress{
				Query:     query,
				Page:      page,
				Retrieved: len(records),
				TotalHits: resp.TotalHits,
				Elapsed:   elapsed,
			})
		}

		if len(resp.Results) == 0 {
			return records, nil
		}

		// Without a cursor the next request would reopen the scroll and
		// repeat this page forever.
		if resp.ScrollID == "" {
			return nil, &SchemaError{Field: "scrollId", Reason: "missing on a non-empty page"}
		}
		cursor = resp.ScrollID
	}
}

// fetchPage sends one page request. An empty cursor opens a new scroll.
func (c *Client) fetchPage(ctx context.Context, query, cursor string) (*scrollResponse, error) {
	body := scrollRequest{Q: query, Limit: c.Config.PageSize}
	if cursor == "" {
		body.Scroll = true
	} else {
		body.ScrollID = cursor
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling page request: %w", err)
	}

	reqURL := c.searchURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Config.UserAgent != "" {
		req.Header.Set("User-Agent", c.Config.UserAgent)
	}
	if c.Config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.Config.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.Config.RateLimitRetries, c.Log)
	if err != nil {
		return nil, &TransportError{URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &TransportError{
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: reqURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}

	var sr scrollResponse
	if err := json.Unmarshal(payload, &sr); err != nil {
		return nil, &SchemaError{Field: "response", Reason: err.Error()}
	}
	return &sr, nil
}

func (c *Client) searchURL() string {
	return strings.TrimRight(c.Config.Endpoint, "/") + "/" + strings.TrimLeft(c.Config.SearchPath, "/")
}
