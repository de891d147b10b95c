// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checkpoint

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/samdeverett/metabolomics-llm/pkg/types"
)

const schema = `CREATE TABLE works (
	seq INTEGER NOT NULL,
	id TEXT PRIMARY KEY,
	title TEXT,
	type TEXT,
	published_date TEXT,
	updated_date TEXT,
	url TEXT,
	citation_count INTEGER,
	full_text TEXT
)`

const insertWork = `INSERT INTO works
	(seq, id, title, type, published_date, updated_date, url, citation_count, full_text)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectWorks = `SELECT id, title, type, published_date, updated_date, url, citation_count, full_text
	FROM works ORDER BY seq`

// writeDB creates the works table in the (empty) database at path and
// inserts records in a single transaction.
func writeDB(ctx context.Context, path string, records []types.FetchRecord) error {
	// Rollback journal rather than WAL: the file is renamed after close and
	// must not depend on sidecar files.
	db, err := sql.Open("sqlite3", path+"?_journal_mode=DELETE&_synchronous=FULL")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if err := insertAll(ctx, db, records); err != nil {
		db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

func insertAll(ctx context.Context, db *sql.DB, records []types.FetchRecord) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, insertWork)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx,
			i, r.ID,
			nullable(r.Title), nullable(r.Type),
			nullable(r.PublishedDate), nullable(r.UpdatedDate),
			nullable(r.URL), nullableInt(r.CitationCount),
			nullable(r.FullText),
		); err != nil {
			return fmt.Errorf("inserting %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func readDB(ctx context.Context, path string) ([]types.FetchRecord, error) {
	db, err := openReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, selectWorks)
	if err != nil {
		return nil, fmt.Errorf("querying works: %w", err)
	}
	defer rows.Close()

	records := []types.FetchRecord{}
	for rows.Next() {
		var (
			r                              types.FetchRecord
			title, typ, published, updated sql.NullString
			url, fullText                  sql.NullString
			citations                      sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &title, &typ, &published, &updated, &url, &citations, &fullText); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.Title = fromNull(title)
		r.Type = fromNull(typ)
		r.PublishedDate = fromNull(published)
		r.UpdatedDate = fromNull(updated)
		r.URL = fromNull(url)
		r.FullText = fromNull(fullText)
		if citations.Valid {
			n := citations.Int64
			r.CitationCount = &n
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return records, nil
}

func openReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableInt(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
