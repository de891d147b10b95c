// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checkpoint persists harvested works as one immutable SQLite
// database per publication year. A year is complete exactly when its
// database file exists; writes land in a temp file that is renamed into
// place, so an interrupted write leaves nothing a reader would mistake for
// a finished year.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/samdeverett/metabolomics-llm/pkg/types"
)

const (
	fileExt  = ".db"
	fileMode = 0o644
)

var (
	// ErrCheckpointExists is returned by Write when the year already has a
	// checkpoint. Checkpoints are write-once.
	ErrCheckpointExists = errors.New("checkpoint already exists")

	// ErrDuplicateID is returned by Write when two records share an id.
	ErrDuplicateID = errors.New("duplicate record id")
)

var yearFile = regexp.MustCompile(`^(\d+)\.db$`)

// CheckpointIOError reports a filesystem or database failure while reading
// or writing a checkpoint.
type CheckpointIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *CheckpointIOError) Error() string {
	return fmt.Sprintf("checkpoint %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CheckpointIOError) Unwrap() error { return e.Err }

// Store manages the per-year checkpoint files under one directory.
// Callers must not write the same year from two goroutines at once.
type Store struct {
	dir string
	log zerolog.Logger
}

// Open returns a Store rooted at dir, creating the directory if needed.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &CheckpointIOError{Op: "mkdir", Path: dir, Err: err}
	}
	return &Store{dir: dir, log: log}, nil
}

// Dir returns the directory holding the checkpoint files.
func (s *Store) Dir() string { return s.dir }

// Path returns the checkpoint file path for year.
func (s *Store) Path(year int) string {
	return filepath.Join(s.dir, strconv.Itoa(year)+fileExt)
}

// Has reports whether year has a completed checkpoint.
func (s *Store) Has(year int) (bool, error) {
	path := s.Path(year)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &CheckpointIOError{Op: "stat", Path: path, Err: err}
	}
	if info.IsDir() {
		return false, &CheckpointIOError{Op: "stat", Path: path, Err: errors.New("is a directory")}
	}
	return true, nil
}

// Years lists the checkpointed years in ascending order.
func (s *Store) Years() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &CheckpointIOError{Op: "list", Path: s.dir, Err: err}
	}
	var years []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := yearFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		y, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

// Write persists records as the checkpoint for year. Record order is
// preserved. The file appears only after every row is committed.
func (s *Store) Write(ctx context.Context, year int, records []types.FetchRecord) error {
	exists, err := s.Has(year)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("year %d: %w", year, ErrCheckpointExists)
	}

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("year %d: %w: %s", year, ErrDuplicateID, r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	dest := s.Path(year)
	tmp, err := os.CreateTemp(s.dir, fmt.Sprintf(".%d-*.tmp", year))
	if err != nil {
		return &CheckpointIOError{Op: "create", Path: dest, Err: err}
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &CheckpointIOError{Op: "create", Path: tmpPath, Err: err}
	}

	if err := writeDB(ctx, tmpPath, records); err != nil {
		removeTemp(tmpPath)
		return &CheckpointIOError{Op: "write", Path: tmpPath, Err: err}
	}

	if err := os.Chmod(tmpPath, fileMode); err != nil {
		removeTemp(tmpPath)
		return &CheckpointIOError{Op: "chmod", Path: tmpPath, Err: err}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		removeTemp(tmpPath)
		return &CheckpointIOError{Op: "rename", Path: dest, Err: err}
	}

	// The checkpoint is in place; a failed directory sync only weakens
	// durability across power loss.
	if err := syncDir(s.dir); err != nil {
		s.log.Warn().Err(err).Str("dir", s.dir).Msg("could not sync checkpoint directory")
	}

	s.log.Debug().Int("year", year).Int("records", len(records)).Str("path", dest).Msg("checkpoint written")
	return nil
}

// ReadYear loads one year's records in their original order. A missing
// year yields os.ErrNotExist wrapped in a CheckpointIOError.
func (s *Store) ReadYear(ctx context.Context, year int) ([]types.FetchRecord, error) {
	path := s.Path(year)
	if _, err := os.Stat(path); err != nil {
		return nil, &CheckpointIOError{Op: "read", Path: path, Err: err}
	}
	records, err := readDB(ctx, path)
	if err != nil {
		return nil, &CheckpointIOError{Op: "read", Path: path, Err: err}
	}
	return records, nil
}

// ReadRange loads the checkpoints for start through end inclusive, in
// ascending year order. Years without a checkpoint are skipped.
func (s *Store) ReadRange(ctx context.Context, start, end int) ([]types.FetchRecord, error) {
	var all []types.FetchRecord
	for year := start; year <= end; year++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
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
		all = append(all, records...)
	}
	return all, nil
}

// Count returns the number of records in year's checkpoint.
func (s *Store) Count(ctx context.Context, year int) (int, error) {
	path := s.Path(year)
	if _, err := os.Stat(path); err != nil {
		return 0, &CheckpointIOError{Op: "count", Path: path, Err: err}
	}
	db, err := openReadOnly(path)
	if err != nil {
		return 0, &CheckpointIOError{Op: "count", Path: path, Err: err}
	}
	defer db.Close()

	var n int
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM works`).Scan(&n); err != nil {
		return 0, &CheckpointIOError{Op: "count", Path: path, Err: err}
	}
	return n, nil
}

// syncDir flushes directory entries so a completed rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

func removeTemp(path string) {
	os.Remove(path)
	os.Remove(path + "-journal")
}
