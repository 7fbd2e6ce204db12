package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// FileStore keeps one file per item in a directory. File names are the
// path-escaped keys plus an optional extension; writes replace the file
// atomically.
type FileStore struct {
	dir string
	ext string
}

// NewFileStore creates dir if needed and returns a store over it.
func NewFileStore(dir, ext string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir, ext: ext}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+s.ext)
}

// SaveItem writes value to the item's file.
func (s *FileStore) SaveItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := renameio.WriteFile(s.path(key), []byte(value), 0o600); err != nil {
		return fmt.Errorf("write item %s: %w", key, err)
	}
	return nil
}

// LoadItem reads the item's file; found is false if it does not exist.
func (s *FileStore) LoadItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read item %s: %w", key, err)
	}
	return string(b), true, nil
}

// DeleteItem removes the item's file.
func (s *FileStore) DeleteItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete item %s: %w", key, err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
