package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Klingon-tech/ldpos-client/config"
	"github.com/Klingon-tech/ldpos-client/internal/log"
)

// keyIndexPrefix namespaces key indices inside a shared database.
var keyIndexPrefix = []byte("keyindex/")

// Open returns the key index store selected by cfg.Store.
func Open(cfg *config.Config) (Store, error) {
	path := cfg.StorePath()
	backend := cfg.Store.Backend

	var db DB
	switch backend {
	case config.StoreMemory:
		db = NewMemory()
	case config.StoreBadger:
		b, err := NewBadger(path)
		if err != nil {
			return nil, err
		}
		db = b
	case config.StoreBolt:
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, fmt.Errorf("create store dir %s: %w", path, err)
		}
		b, err := NewBolt(filepath.Join(path, "keyindex.db"))
		if err != nil {
			return nil, err
		}
		db = b
	case config.StoreFile:
		store, err := NewFileStore(path, ".txt")
		if err != nil {
			return nil, err
		}
		log.Storage.Debug().Str("backend", string(backend)).Str("path", path).Msg("Key index store opened")
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, backend)
	}

	log.Storage.Debug().Str("backend", string(backend)).Str("path", path).Msg("Key index store opened")
	return NewItemStore(NewPrefixDB(db, keyIndexPrefix)), nil
}
