// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samdeverett/metabolomics-llm/pkg/types"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"WARN", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"loud", zerolog.NoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewJSONFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(types.LoggingConfig{Level: "warn", Format: "json"}, &buf, true)
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Warn().Int("year", 2020).Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, float64(2020), entry["year"])
	assert.Contains(t, entry, "time")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(types.LoggingConfig{}, &buf, true)
	require.NoError(t, err)

	log.Info().Str("query", "metabolomics").Msg("fetching")
	out := buf.String()
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "fetching")
	assert.Contains(t, out, "query=metabolomics")
	assert.NotContains(t, out, "\x1b[")
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(types.LoggingConfig{Format: "xml"}, &bytes.Buffer{}, true)
	assert.ErrorContains(t, err, "unknown log format")

	_, err = New(types.LoggingConfig{Level: "chatty"}, &bytes.Buffer{}, true)
	assert.ErrorContains(t, err, "invalid log level")
}
