// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAlignsColumns(t *testing.T) {
	tb := newTable("YEAR", "RECORDS", "PATH")
	tb.add("2019", "12", "data/2019.db")
	tb.add("2020", "3", "data/2020.db")

	var buf bytes.Buffer
	require.NoError(t, tb.write(&buf))
	assert.Equal(t,
		"YEAR  RECORDS  PATH\n"+
			"2019  12       data/2019.db\n"+
			"2020  3        data/2020.db\n",
		buf.String())
}

func TestTableTruncatesAndFlattens(t *testing.T) {
	tb := newTable("ID", "TITLE").limit(1, 10)
	tb.add("a", "Plasma\nmetabolomics of aging")

	var buf bytes.Buffer
	require.NoError(t, tb.write(&buf))
	assert.Equal(t, "ID  TITLE\na   Plasma ...\n", buf.String())
}

func TestTableWideCharacters(t *testing.T) {
	tb := newTable("T", "N")
	tb.add("代谢", "1")
	tb.add("ab", "2")

	var buf bytes.Buffer
	require.NoError(t, tb.write(&buf))
	assert.Equal(t, "T     N\n代谢  1\nab    2\n", buf.String())
}

func TestTableMissingCells(t *testing.T) {
	tb := newTable("A", "B")
	tb.add("x")

	var buf bytes.Buffer
	require.NoError(t, tb.write(&buf))
	assert.Equal(t, "A  B\nx  \n", buf.String())
}
