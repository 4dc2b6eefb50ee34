// Package bbolt implements the ports.ArtifactCache interface using bbolt
// (embedded B+ tree). One bucket maps staging-relative paths to the SHA-256
// of the last artifact written there, so unchanged artifacts can skip their
// disk write across process restarts. Writes are transactional — a crash
// mid-write cannot corrupt previously committed entries.
package bbolt

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketArtifacts = []byte("artifacts")

// Cache implements ports.ArtifactCache backed by bbolt.
type Cache struct {
	db *bolt.DB
}

// NewCache opens (or creates) a bbolt database at the given path and
// ensures the artifacts bucket exists.
func NewCache(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketArtifacts)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bbolt init: %w", err)
	}
	return &Cache{db: db}, nil
}

// Get returns the stored hash for relPath, or nil if none.
func (c *Cache) Get(relPath string) ([]byte, error) {
	var out []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketArtifacts).Get([]byte(relPath))
		if v != nil {
			out = make([]byte, len(v))
			copy(out, v)
		}
		return nil
	})
	return out, err
}

// Put stores the hash for relPath, overwriting any prior value.
func (c *Cache) Put(relPath string, hash []byte) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketArtifacts).Put([]byte(relPath), hash)
	})
}

// Close closes the underlying bbolt database.
func (c *Cache) Close() error {
	return c.db.Close()
}
