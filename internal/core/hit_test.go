// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProjection(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantID    string
		wantCites *int64
		wantField string // non-empty when a SchemaError is expected
	}{
		{name: "numeric id", raw: `{"id":12345,"citationCount":7}`, wantID: "12345", wantCites: ptr(int64(7))},
		{name: "string id", raw: `{"id":"abc-1"}`, wantID: "abc-1"},
		{name: "large numeric id keeps digits", raw: `{"id":9007199254740993}`, wantID: "9007199254740993"},
		{name: "null citation", raw: `{"id":1,"citationCount":null}`, wantID: "1"},
		{name: "zero citation", raw: `{"id":1,"citationCount":0}`, wantID: "1", wantCites: ptr(int64(0))},
		{name: "missing id", raw: `{"title":"x"}`, wantField: "id"},
		{name: "null id", raw: `{"id":null}`, wantField: "id"},
		{name: "blank id", raw: `{"id":"  "}`, wantField: "id"},
		{name: "object id", raw: `{"id":{"a":1}}`, wantField: "id"},
		{name: "fractional citation", raw: `{"id":1,"citationCount":1.5}`, wantField: "citationCount"},
		{name: "string citation", raw: `{"id":1,"citationCount":"3"}`, wantField: "citationCount"},
		{name: "negative citation", raw: `{"id":1,"citationCount":-2}`, wantField: "citationCount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, err := decodeHit(json.RawMessage(tt.raw))
			require.NoError(t, err)

			rec, err := DefaultProjection(hit)
			if tt.wantField != "" {
				var se *SchemaError
				require.True(t, errors.As(err, &se), "want SchemaError, got %v", err)
				assert.Equal(t, tt.wantField, se.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, rec.ID)
			assert.Equal(t, tt.wantCites, rec.CitationCount)
		})
	}
}

func TestDefaultProjection_MapsFields(t *testing.T) {
	hit, err := decodeHit(json.RawMessage(`{
		"id": 42,
		"title": "Untargeted metabolomics of plasma",
		"documentType": "research",
		"publishedDate": "2020-03-01T00:00:00",
		"updatedDate": null,
		"fullText": "Body text",
		"downloadUrl": "https://core.ac.uk/download/42.pdf",
		"authors": [{"name": "ignored"}]
	}`))
	require.NoError(t, err)

	rec, err := DefaultProjection(hit)
	require.NoError(t, err)

	assert.Equal(t, "42", rec.ID)
	assert.Equal(t, "Untargeted metabolomics of plasma", *rec.Title)
	assert.Equal(t, "research", *rec.Type)
	assert.Equal(t, "2020-03-01T00:00:00", *rec.PublishedDate)
	assert.Nil(t, rec.UpdatedDate)
	assert.Nil(t, rec.CitationCount)
	assert.Equal(t, "Body text", *rec.FullText)
	assert.Equal(t, "https://core.ac.uk/download/42.pdf", *rec.URL)
	assert.Contains(t, string(hit.Raw), "authors")
}

func TestDecodeHit_NotAnObject(t *testing.T) {
	_, err := decodeHit(json.RawMessage(`"just a string"`))
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "results[]", se.Field)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, `schema: field "id": missing`, (&SchemaError{Field: "id", Reason: "missing"}).Error())
	assert.Equal(t, "CORE API returned HTTP 401: denied",
		(&TransportError{StatusCode: 401, Body: "denied"}).Error())
	assert.Equal(t, "CORE API returned HTTP 503", (&TransportError{StatusCode: 503}).Error())

	inner := errors.New("connection refused")
	te := &TransportError{URL: "http://x", Err: inner}
	assert.ErrorIs(t, te, inner)
	assert.Contains(t, te.Error(), "connection refused")
}

func ptr[T any](v T) *T { return &v }
