// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// table prints rows in aligned columns. Widths are measured in terminal
// cells so titles with wide characters line up.
type table struct {
	header []string
	// maxWidth caps a column's width; zero means unlimited.
	maxWidth []int
	rows     [][]string
}

func newTable(header ...string) *table {
	return &table{header: header, maxWidth: make([]int, len(header))}
}

// limit caps column col at width cells; longer cells are truncated with "...".
func (t *table) limit(col, width int) *table {
	t.maxWidth[col] = width
	return t
}

func (t *table) add(cells ...string) {
	row := make([]string, len(t.header))
	for i := range row {
		if i < len(cells) {
			c := strings.Join(strings.Fields(cells[i]), " ")
			if t.maxWidth[i] > 0 {
				c = runewidth.Truncate(c, t.maxWidth[i], "...")
			}
			row[i] = c
		}
	}
	t.rows = append(t.rows, row)
}

func (t *table) write(w io.Writer) error {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}

	var sb strings.Builder
	line := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				sb.WriteString("  ")
			}
			if i == len(cells)-1 {
				sb.WriteString(c)
			} else {
				sb.WriteString(runewidth.FillRight(c, widths[i]))
			}
		}
		sb.WriteString("\n")
	}

	line(t.header)
	for _, row := range t.rows {
		line(row)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
