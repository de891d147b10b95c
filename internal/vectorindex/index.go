// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vectorindex stores embedded chunks in a local bbolt database and
// answers nearest-neighbour queries by brute force. One database file can
// hold several named indexes, each with a fixed dimension and metric.
package vectorindex

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

// Similarity metrics.
const (
	MetricCosine     = "cosine"
	MetricEuclidean  = "euclidean"
	MetricDotProduct = "dotproduct"
)

var (
	metaKey       = []byte("meta")
	vectorsBucket = []byte("vectors")
)

// ErrMismatch is returned by Open when an existing index was created with a
// different dimension or metric.
var ErrMismatch = errors.New("index settings mismatch")

// Item is one vector to store. Metadata travels with the vector and comes
// back on every match.
type Item struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Match is a query result. Higher scores are closer: cosine similarity,
// dot product, or negated euclidean distance depending on the metric.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// Settings describe the vectors an index holds.
type Settings struct {
	Dimension int
	Metric    string

	// Model names the embedding model that produced the vectors. Queries
	// must be embedded with the same model to be comparable.
	Model string
}

type meta struct {
	Dimension int       `json:"dimension"`
	Metric    string    `json:"metric"`
	Model     string    `json:"model,omitempty"`
	Created   time.Time `json:"created"`
}

// Index is a named vector index inside a bbolt database.
type Index struct {
	db        *bbolt.DB
	name      []byte
	dimension int
	metric    string
	model     string
}

// Open opens or creates the index name in the database at path. A new
// index records the settings; reopening an existing index with a
// different dimension, metric, or model fails with ErrMismatch. Zero
// fields adopt whatever the existing index uses.
func Open(path, name string, s Settings) (*Index, error) {
	dimension, metric, model := s.Dimension, s.Metric, s.Model
	if name == "" {
		return nil, errors.New("index name is required")
	}
	if metric != "" && !validMetric(metric) {
		return nil, fmt.Errorf("unknown metric %q (want cosine, euclidean, or dotproduct)", metric)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening index database %s: %w", path, err)
	}

	idx := &Index{db: db, name: []byte(name)}
	err = db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(idx.name)
		if b == nil {
			if dimension <= 0 {
				return fmt.Errorf("index %q does not exist and no dimension was given", name)
			}
			if metric == "" {
				metric = MetricCosine
			}
			return create(tx, idx.name, meta{Dimension: dimension, Metric: metric, Model: model, Created: time.Now().UTC()})
		}

		var m meta
		if err := json.Unmarshal(b.Get(metaKey), &m); err != nil {
			return fmt.Errorf("reading index %q settings: %w", name, err)
		}
		if dimension > 0 && dimension != m.Dimension {
			return fmt.Errorf("%w: index %q has dimension %d, got %d", ErrMismatch, name, m.Dimension, dimension)
		}
		if metric != "" && metric != m.Metric {
			return fmt.Errorf("%w: index %q uses metric %s, got %s", ErrMismatch, name, m.Metric, metric)
		}
		if model != "" && m.Model != "" && model != m.Model {
			return fmt.Errorf("%w: index %q was built with model %s, got %s", ErrMismatch, name, m.Model, model)
		}
		if model != "" && m.Model == "" {
			m.Model = model
			data, err := json.Marshal(m)
			if err != nil {
				return err
			}
			if err := b.Put(metaKey, data); err != nil {
				return fmt.Errorf("recording index model: %w", err)
			}
		}
		dimension, metric, model = m.Dimension, m.Metric, m.Model
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	idx.dimension = dimension
	idx.metric = metric
	idx.model = model
	return idx, nil
}

func create(tx *bbolt.Tx, name []byte, m meta) error {
	b, err := tx.CreateBucket(name)
	if err != nil {
		return fmt.Errorf("creating index bucket: %w", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := b.Put(metaKey, data); err != nil {
		return err
	}
	_, err = b.CreateBucket(vectorsBucket)
	return err
}

// Close releases the database.
func (x *Index) Close() error { return x.db.Close() }

// Dimension returns the vector length the index accepts.
func (x *Index) Dimension() int { return x.dimension }

// Metric returns the similarity metric.
func (x *Index) Metric() string { return x.metric }

// Model returns the embedding model recorded for the index, or "" when
// none was recorded.
func (x *Index) Model() string { return x.model }

// Upsert writes items in one transaction, replacing any with the same id.
// Every vector must match the index dimension.
func (x *Index) Upsert(items []Item) error {
	for _, it := range items {
		if it.ID == "" {
			return errors.New("item id is required")
		}
		if len(it.Vector) != x.dimension {
			return fmt.Errorf("item %s: vector dimension %d, index expects %d", it.ID, len(it.Vector), x.dimension)
		}
	}

	return x.db.Update(func(tx *bbolt.Tx) error {
		b := x.vectors(tx)
		for _, it := range items {
			data, err := encode(it)
			if err != nil {
				return fmt.Errorf("encoding %s: %w", it.ID, err)
			}
			if err := b.Put([]byte(it.ID), data); err != nil {
				return fmt.Errorf("storing %s: %w", it.ID, err)
			}
		}
		return nil
	})
}

// Query returns the k stored vectors closest to vector, best first.
func (x *Index) Query(vector []float32, k int) ([]Match, error) {
	if len(vector) != x.dimension {
		return nil, fmt.Errorf("query dimension %d, index expects %d", len(vector), x.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	score := scorer(x.metric)
	var matches []Match
	err := x.db.View(func(tx *bbolt.Tx) error {
		return x.vectors(tx).ForEach(func(id, v []byte) error {
			vec, md, err := decode(v)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", id, err)
			}
			matches = append(matches, Match{ID: string(id), Score: score(vector, vec), Metadata: md})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// DeleteFunc removes every stored vector for which match returns true and
// reports how many were removed.
func (x *Index) DeleteFunc(match func(id string, metadata map[string]string) bool) (int, error) {
	var n int
	err := x.db.Update(func(tx *bbolt.Tx) error {
		b := x.vectors(tx)
		var doomed [][]byte
		err := b.ForEach(func(id, v []byte) error {
			_, md, err := decode(v)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", id, err)
			}
			if match(string(id), md) {
				doomed = append(doomed, append([]byte(nil), id...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, id := range doomed {
			if err := b.Delete(id); err != nil {
				return fmt.Errorf("deleting %s: %w", id, err)
			}
		}
		n = len(doomed)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Count returns the number of stored vectors.
func (x *Index) Count() (int, error) {
	var n int
	err := x.db.View(func(tx *bbolt.Tx) error {
		n = x.vectors(tx).Stats().KeyN
		return nil
	})
	return n, err
}

// Has reports whether id is stored.
func (x *Index) Has(id string) (bool, error) {
	var ok bool
	err := x.db.View(func(tx *bbolt.Tx) error {
		ok = x.vectors(tx).Get([]byte(id)) != nil
		return nil
	})
	return ok, err
}

func (x *Index) vectors(tx *bbolt.Tx) *bbolt.Bucket {
	return tx.Bucket(x.name).Bucket(vectorsBucket)
}

// Stored layout: uint32 vector length, little-endian float32s, then the
// metadata as JSON.
func encode(it Item) ([]byte, error) {
	md, err := json.Marshal(it.Metadata)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4+4*len(it.Vector), 4+4*len(it.Vector)+len(md))
	binary.LittleEndian.PutUint32(buf, uint32(len(it.Vector)))
	for i, f := range it.Vector {
		binary.LittleEndian.PutUint32(buf[4+4*i:], math.Float32bits(f))
	}
	return append(buf, md...), nil
}

func decode(data []byte) ([]float32, map[string]string, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("truncated record")
	}
	n := int(binary.LittleEndian.Uint32(data))
	end := 4 + 4*n
	if len(data) < end {
		return nil, nil, errors.New("truncated vector")
	}
	vec := make([]float32, n)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4+4*i:]))
	}
	var md map[string]string
	if err := json.Unmarshal(data[end:], &md); err != nil {
		return nil, nil, fmt.Errorf("metadata: %w", err)
	}
	return vec, md, nil
}
