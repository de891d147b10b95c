// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/samdeverett/metabolomics-llm/pkg/types"
)

// Hit is one entry of a search page's "results" array. Scalar fields are
// pointers so that absent and null both decode to nil. Raw keeps the
// original object for projections that need fields not listed here.
type Hit struct {
	ID            json.RawMessage `json:"id"`
	Title         *string         `json:"title"`
	DocumentType  *string         `json:"documentType"`
	CitationCount json.RawMessage `json:"citationCount"`
	PublishedDate *string         `json:"publishedDate"`
	UpdatedDate   *string         `json:"updatedDate"`
	FullText      *string         `json:"fullText"`
	DownloadURL   *string         `json:"downloadUrl"`

	Raw json.RawMessage `json:"-"`
}

// Projection maps an upstream hit to a FetchRecord. It must not depend on
// anything but its argument.
type Projection func(Hit) (types.FetchRecord, error)

// DefaultProjection is the standard mapping from a CORE work to a
// FetchRecord. Only id is required; every other field maps absent or null
// to nil. citationCount, when present, must be a non-negative integer.
func DefaultProjection(h Hit) (types.FetchRecord, error) {
	id, err := projectID(h.ID)
	if err != nil {
		return types.FetchRecord{}, err
	}
	citations, err := projectCount(h.CitationCount)
	if err != nil {
		return types.FetchRecord{}, err
	}
	return types.FetchRecord{
		ID:            id,
		Title:         h.Title,
		Type:          h.DocumentType,
		PublishedDate: h.PublishedDate,
		UpdatedDate:   h.UpdatedDate,
		URL:           h.DownloadURL,
		CitationCount: citations,
		FullText:      h.FullText,
	}, nil
}

// decodeHit parses a single results entry.
func decodeHit(raw json.RawMessage) (Hit, error) {
	var h Hit
	if err := json.Unmarshal(raw, &h); err != nil {
		return Hit{}, &SchemaError{Field: "results[]", Reason: err.Error()}
	}
	h.Raw = raw
	return h, nil
}

// projectID accepts CORE's numeric ids as well as string ids.
func projectID(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", &SchemaError{Field: "id", Reason: "missing"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return "", &SchemaError{Field: "id", Reason: "empty"}
		}
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", &SchemaError{Field: "id", Reason: "not a string or number: " + string(raw)}
	}
	return n.String(), nil
}

func projectCount(raw json.RawMessage) (*int64, error) {
	if isNull(raw) {
		return nil, nil
	}
	n, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil {
		return nil, &SchemaError{Field: "citationCount", Reason: "not an integer: " + string(raw)}
	}
	if n < 0 {
		return nil, &SchemaError{Field: "citationCount", Reason: "negative"}
	}
	return &n, nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
