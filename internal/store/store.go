// Package store persists local state in a single bbolt bucket.
// Every key holds one JSON document; callers read a whole collection,
// change it in memory and write the whole collection back.
//
// The database file is opened for the duration of one transaction only,
// so the CLI and a running daemon can share it. bbolt's file lock
// serializes their transactions.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// LockTimeout is how long a transaction waits for another process to
// release the database.
const LockTimeout = 2 * time.Second

var bucketState = []byte("state")

// Store is a bbolt-backed key-value store.
type Store struct {
	path string
}

// Open creates the database at path if needed and checks it can be opened.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{path: path}
	err := s.withDB(false, func(db *bolt.DB) error {
		return db.Update(func(tx *bolt.Tx) error {
			if _, err := tx.CreateBucketIfNotExists(bucketState); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucketState, err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) withDB(readOnly bool, fn func(db *bolt.DB) error) error {
	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: LockTimeout, ReadOnly: readOnly})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	return fn(db)
}

// Get decodes the value stored under key into v.
// Returns false if the key has never been written.
func (s *Store) Get(key string, v any) (bool, error) {
	var found bool
	err := s.View(func(tx *Tx) error {
		var err error
		found, err = tx.Get(key, v)
		return err
	})
	return found, err
}

// Put encodes v and stores it under key.
func (s *Store) Put(key string, v any) error {
	return s.Update(func(tx *Tx) error {
		return tx.Put(key, v)
	})
}

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(tx *Tx) error) error {
	return s.withDB(true, func(db *bolt.DB) error {
		return db.View(func(btx *bolt.Tx) error {
			return fn(&Tx{b: btx.Bucket(bucketState)})
		})
	})
}

// Update runs fn in a read-write transaction. All writes made by fn
// commit together or not at all. Transactions must not be nested.
func (s *Store) Update(fn func(tx *Tx) error) error {
	return s.withDB(false, func(db *bolt.DB) error {
		return db.Update(func(btx *bolt.Tx) error {
			return fn(&Tx{b: btx.Bucket(bucketState)})
		})
	})
}

// Tx is a transaction scoped to the state bucket.
type Tx struct {
	b *bolt.Bucket
}

// Get decodes the value stored under key into v.
func (t *Tx) Get(key string, v any) (bool, error) {
	data := t.b.Get([]byte(key))
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Put encodes v and stores it under key.
func (t *Tx) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return t.b.Put([]byte(key), data)
}

// Delete removes key.
func (t *Tx) Delete(key string) error {
	return t.b.Delete([]byte(key))
}
