// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the metabolomics-llm
// pipeline: harvested works, stage configuration, and the chunks that flow
// into the vector index.
package types

// FetchRecord is one normalized work returned by the CORE search API.
// Nullable fields are pointers; nil means the upstream value was absent or
// null and is stored as NULL in a checkpoint.
type FetchRecord struct {
	// ID is the CORE work identifier. Unique within one year's checkpoint.
	ID string `json:"id" yaml:"id"`

	Title         *string `json:"title" yaml:"title"`
	Type          *string `json:"type" yaml:"type"`
	PublishedDate *string `json:"published_date" yaml:"published_date"`
	UpdatedDate   *string `json:"updated_date" yaml:"updated_date"`
	URL           *string `json:"url" yaml:"url"`

	// CitationCount is non-negative when present.
	CitationCount *int64 `json:"citation_count" yaml:"citation_count"`

	// FullText is the extracted body of the work. Often megabytes long.
	FullText *string `json:"full_text" yaml:"full_text"`
}

// TitleOrEmpty returns the title, or "" when the title is null.
func (r FetchRecord) TitleOrEmpty() string {
	return deref(r.Title)
}

// URLOrEmpty returns the download URL, or "" when it is null.
func (r FetchRecord) URLOrEmpty() string {
	return deref(r.URL)
}

// Text returns the full text when present, falling back to the title.
func (r FetchRecord) Text() string {
	if r.FullText != nil && *r.FullText != "" {
		return *r.FullText
	}
	return deref(r.Title)
}

// Chunk is a piece of a work's text prepared for embedding.
type Chunk struct {
	// ID is "<record id>-<index>".
	ID       string `json:"id" yaml:"id"`
	RecordID string `json:"record_id" yaml:"record_id"`
	Index    int    `json:"index" yaml:"index"`
	Text     string `json:"text" yaml:"text"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
}

// StringPtr returns a pointer to s. Handy for building records in tests and
// projections.
func StringPtr(s string) *string { return &s }

// Int64Ptr returns a pointer to n.
func Int64Ptr(n int64) *int64 { return &n }

// Float64Ptr returns a pointer to f.
func Float64Ptr(f float64) *float64 { return &f }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
