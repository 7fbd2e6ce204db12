package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Klingon-tech/ldpos-client/config"
	"github.com/Klingon-tech/ldpos-client/pkg/keys"
)

var (
	_ keys.Store = (*ItemStore)(nil)
	_ keys.Store = (*FileStore)(nil)
	_ Store      = (*ItemStore)(nil)
	_ Store      = (*FileStore)(nil)
)

// testItems runs the shared item contract suite against a Store.
func testItems(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := "ldpos00112233445566778899aabbccddeeff00112233-sigKeyIndex"

	t.Run("Absent", func(t *testing.T) {
		v, found, err := s.LoadItem(ctx, "missing-sigKeyIndex")
		if err != nil {
			t.Fatalf("LoadItem() error: %v", err)
		}
		if found || v != "" {
			t.Errorf("LoadItem() = %q, %v; want absent", v, found)
		}
	})

	t.Run("SaveLoad", func(t *testing.T) {
		if err := s.SaveItem(ctx, key, "35"); err != nil {
			t.Fatalf("SaveItem() error: %v", err)
		}
		v, found, err := s.LoadItem(ctx, key)
		if err != nil || !found || v != "35" {
			t.Fatalf("LoadItem() = %q, %v, %v; want 35", v, found, err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		s.SaveItem(ctx, key, "36")
		v, _, _ := s.LoadItem(ctx, key)
		if v != "36" {
			t.Errorf("LoadItem() after overwrite = %q, want 36", v)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.DeleteItem(ctx, key); err != nil {
			t.Fatalf("DeleteItem() error: %v", err)
		}
		if _, found, _ := s.LoadItem(ctx, key); found {
			t.Error("item still present after DeleteItem()")
		}
		if err := s.DeleteItem(ctx, key); err != nil {
			t.Errorf("DeleteItem() of absent item error: %v", err)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := s.SaveItem(cctx, key, "1"); err == nil {
			t.Error("SaveItem() should honor a cancelled context")
		}
	})
}

func TestItemStore_Memory(t *testing.T) {
	s := NewItemStore(NewMemory())
	defer s.Close()
	testItems(t, s)
}

func TestItemStore_Badger(t *testing.T) {
	db, err := NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	s := NewItemStore(db)
	defer s.Close()
	testItems(t, s)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "items"), ".txt")
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	testItems(t, s)
}

func TestFileStore_EscapesNames(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.SaveItem(ctx, "a/b c", "7"); err != nil {
		t.Fatalf("SaveItem() error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d files, want 1", len(entries))
	}
	if name := entries[0].Name(); strings.ContainsAny(name, "/ ") {
		t.Errorf("file name %q is not escaped", name)
	}
	v, found, _ := s.LoadItem(ctx, "a/b c")
	if !found || v != "7" {
		t.Errorf("LoadItem() = %q, %v", v, found)
	}
}

func TestOpen_Backends(t *testing.T) {
	for _, backend := range []config.StoreBackend{
		config.StoreMemory, config.StoreBadger, config.StoreBolt, config.StoreFile,
	} {
		t.Run(string(backend), func(t *testing.T) {
			cfg := config.Default()
			cfg.DataDir = t.TempDir()
			cfg.Store.Backend = backend

			s, err := Open(cfg)
			if err != nil {
				t.Fatalf("Open() error: %v", err)
			}
			defer s.Close()
			testItems(t, s)
		})
	}
}

func TestOpen_Reopen(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Store.Backend = config.StoreBolt

	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	s.SaveItem(context.Background(), "k", "12")
	s.Close()

	s, err = Open(cfg)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer s.Close()
	v, found, _ := s.LoadItem(context.Background(), "k")
	if !found || v != "12" {
		t.Errorf("LoadItem() after reopen = %q, %v", v, found)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Store.Backend = "redis"
	if _, err := Open(cfg); err == nil {
		t.Error("Open() should reject an unknown backend")
	}
}
