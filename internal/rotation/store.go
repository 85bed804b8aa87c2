package rotation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"
	bbolt "go.etcd.io/bbolt"
)

// DefaultName is the rotation used when none is named.
const DefaultName = "default"

var bucketRotations = []byte("rotations")

// Store persists named rotations in a bbolt file.
type Store struct {
	db *bbolt.DB
}

// OpenStore opens or creates the state database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("rotation: create state dir: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("rotation: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRotations)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("rotation: create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the named rotation. An unknown name yields an empty rotation.
func (s *Store) Load(name string) (*Rotation, error) {
	var r *Rotation
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		r, err = get(tx, name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("rotation: load %s: %w", name, err)
	}
	return r, nil
}

// Save replaces the named rotation.
func (s *Store) Save(name string, r *Rotation) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, name, r)
	})
}

func get(tx *bbolt.Tx, name string) (*Rotation, error) {
	var names []string
	if data := tx.Bucket(bucketRotations).Get([]byte(name)); data != nil {
		if err := json.Unmarshal(data, &names); err != nil {
			return nil, err
		}
	}
	return New(names...)
}

func put(tx *bbolt.Tx, name string, r *Rotation) error {
	data, err := json.Marshal(r.Maps())
	if err != nil {
		return fmt.Errorf("rotation: encode %s: %w", name, err)
	}
	return tx.Bucket(bucketRotations).Put([]byte(name), data)
}

// Delete removes the named rotation.
func (s *Store) Delete(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRotations).Delete([]byte(name))
	})
}

// Names lists stored rotation names, sorted.
func (s *Store) Names() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRotations).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	sort.Strings(names)
	return names, err
}

// Update loads the named rotation, applies fn and saves the result if fn
// succeeds, all in one transaction.
func (s *Store) Update(name string, fn func(r *Rotation) error) (*Rotation, error) {
	var r *Rotation
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		if r, err = get(tx, name); err != nil {
			return fmt.Errorf("rotation: load %s: %w", name, err)
		}
		if err := fn(r); err != nil {
			return err
		}
		return put(tx, name, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}
