package storage

import (
	"context"
	"errors"
)

// Store is a closable string item store. Key domains persist their key
// indices through it.
type Store interface {
	SaveItem(ctx context.Context, key, value string) error
	LoadItem(ctx context.Context, key string) (string, bool, error)
	DeleteItem(ctx context.Context, key string) error
	Close() error
}

// ItemStore adapts a DB to the item contract of the key domains.
type ItemStore struct {
	db DB
}

// NewItemStore wraps db. Closing the store closes db.
func NewItemStore(db DB) *ItemStore {
	return &ItemStore{db: db}
}

// SaveItem stores value under key.
func (s *ItemStore) SaveItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Put([]byte(key), []byte(value))
}

// LoadItem returns the value under key; found is false if it is absent.
func (s *ItemStore) LoadItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, err := s.db.Get([]byte(key))
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(v), true, nil
}

// DeleteItem removes key. Removing an absent key is not an error.
func (s *ItemStore) DeleteItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Delete([]byte(key))
}

// Close closes the underlying DB.
func (s *ItemStore) Close() error {
	return s.db.Close()
}
