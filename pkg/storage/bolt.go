package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/yasi-python/censtau/pkg/dataset"
)

var bucketDatasets = []byte("datasets")

// ErrNotFound is returned for unknown dataset names.
var ErrNotFound = errors.New("not_found")

// DB is a catalog of input datasets. Estimator results are never stored.
type DB struct {
	db *bolt.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucketDatasets)
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }

// Record is a stored dataset with bookkeeping.
type Record struct {
	Dataset   dataset.Dataset `json:"dataset"`
	CreatedAt int64           `json:"created_unix"`
	UpdatedAt int64           `json:"updated_unix"`
}

// Summary describes a stored dataset without its values.
type Summary struct {
	Name      string `json:"name"`
	N         int    `json:"n"`
	XLimits   int    `json:"x_limits"`
	YLimits   int    `json:"y_limits"`
	HasErrors bool   `json:"has_errors"`
	UpdatedAt int64  `json:"updated_unix"`
}

// PutDataset validates and stores ds under ds.Name, replacing any previous version.
func (d *DB) PutDataset(ds dataset.Dataset) error {
	if err := dataset.ValidName(ds.Name); err != nil {
		return err
	}
	if err := ds.Validate(); err != nil {
		return err
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDatasets)
		now := time.Now().Unix()
		rec := Record{Dataset: ds, CreatedAt: now, UpdatedAt: now}
		if v := b.Get([]byte(ds.Name)); v != nil {
			var old Record
			if err := json.Unmarshal(v, &old); err == nil {
				rec.CreatedAt = old.CreatedAt
			}
		}
		j, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(ds.Name), j)
	})
}

func (d *DB) GetDataset(name string) (*Record, error) {
	var r Record
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketDatasets).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("dataset %q: %w", name, ErrNotFound)
		}
		return json.Unmarshal(v, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *DB) DeleteDataset(name string) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDatasets)
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("dataset %q: %w", name, ErrNotFound)
		}
		return b.Delete([]byte(name))
	})
}

// ListDatasets returns summaries sorted by name.
func (d *DB) ListDatasets() ([]Summary, error) {
	out := []Summary{}
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDatasets).ForEach(func(k, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return nil
			}
			xl, yl := r.Dataset.Censors().Limits()
			out = append(out, Summary{
				Name: string(k), N: r.Dataset.Len(), XLimits: xl, YLimits: yl,
				HasErrors: r.Dataset.HasErrors(), UpdatedAt: r.UpdatedAt,
			})
			return nil
		})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

// Count returns the number of stored datasets.
func (d *DB) Count() (int, error) {
	n := 0
	err := d.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketDatasets).Stats().KeyN
		return nil
	})
	return n, err
}

// SnapshotDataset writes ds as indented JSON into dir and returns the file path.
func (d *DB) SnapshotDataset(ds dataset.Dataset, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%d.json", ds.Name, time.Now().Unix())
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", err
	}
	if err := dataset.WriteJSON(f, &ds); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}
