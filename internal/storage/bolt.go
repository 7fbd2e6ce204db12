package storage

import (
	"bytes"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("ldpos")

// BoltDB implements DB using a single bbolt bucket.
type BoltDB struct {
	db *bolt.DB
}

// NewBolt opens or creates a bbolt database file at path.
func NewBolt(path string) (*BoltDB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open bbolt at %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &BoltDB{db: db}, nil
}

// Get retrieves a value by key. Returns ErrNotFound if the key does not exist.
func (b *BoltDB) Get(key []byte) ([]byte, error) {
	var val []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v, ok := boltGet(tx.Bucket(boltBucket), key)
		if !ok {
			return ErrNotFound
		}
		val = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Put stores a key-value pair.
func (b *BoltDB) Put(key, value []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("bbolt put: %w", err)
	}
	return nil
}

// Delete removes a key.
func (b *BoltDB) Delete(key []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete(key)
	})
	if err != nil {
		return fmt.Errorf("bbolt delete: %w", err)
	}
	return nil
}

// Has checks if a key exists.
func (b *BoltDB) Has(key []byte) (bool, error) {
	var exists bool
	err := b.db.View(func(tx *bolt.Tx) error {
		_, exists = boltGet(tx.Bucket(boltBucket), key)
		return nil
	})
	return exists, err
}

// ForEach iterates over all keys with the given prefix.
func (b *BoltDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if err := fn(append([]byte{}, k...), append([]byte{}, v...)); err != nil {
				return err
			}
		}
		return nil
	})
}

// boltGet looks key up with a cursor so empty values are told apart from
// absent keys.
func boltGet(b *bolt.Bucket, key []byte) ([]byte, bool) {
	k, v := b.Cursor().Seek(key)
	if k == nil || !bytes.Equal(k, key) {
		return nil, false
	}
	return v, true
}

// Close closes the database.
func (b *BoltDB) Close() error {
	return b.db.Close()
}
