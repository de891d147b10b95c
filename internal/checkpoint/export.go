// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/samdeverett/metabolomics-llm/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// ExportEntry is a checkpointed record tagged with its publication year.
type ExportEntry struct {
	Year              int `json:"year" yaml:"year"`
	types.FetchRecord `yaml:",inline"`
}

// ExportOptions selects what Export writes.
type ExportOptions struct {
	Start, End int
	Format     string // FormatYAML or FormatJSON

	// OmitFullText drops full_text, which dominates the size of an export.
	OmitFullText bool
}

// Export writes the checkpoints for opts.Start..opts.End to w.
func (s *Store) Export(ctx context.Context, w io.Writer, opts ExportOptions) (int, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return 0, err
	}

	var data []byte
	switch strings.ToLower(opts.Format) {
	case "", FormatYAML:
		data, err = yaml.Marshal(entries)
		if err != nil {
			return 0, fmt.Errorf("marshaling YAML: %w", err)
		}
	case FormatJSON:
		data, err = json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return 0, fmt.Errorf("marshaling JSON: %w", err)
		}
		data = append(data, '\n')
	default:
		return 0, fmt.Errorf("unknown export format %q", opts.Format)
	}

	if _, err := w.Write(data); err != nil {
		return 0, fmt.Errorf("writing export: %w", err)
	}
	return len(entries), nil
}

func (s *Store) exportEntries(ctx context.Context, opts ExportOptions) ([]ExportEntry, error) {
	entries := []ExportEntry{}
	for year := opts.Start; year <= opts.End; year++ {
		ok, err := s.Has(year)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		records, err := s.ReadYear(ctx, year)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if opts.OmitFullText {
				r.FullText = nil
			}
			entries = append(entries, ExportEntry{Year: year, FetchRecord: r})
		}
	}
	return entries, nil
}
