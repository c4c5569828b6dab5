package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"dreammover/internal/config"
)

func openForTest(t *testing.T, storage config.Storage) Backend {
	t.Helper()
	b, closeFn, err := Open(context.Background(), storage)
	if err != nil {
		t.Fatalf("open %s: %v", storage.Driver, err)
	}
	t.Cleanup(func() {
		if err := closeFn(); err != nil {
			t.Errorf("close %s: %v", storage.Driver, err)
		}
	})
	return b
}

// TestBackendContract runs the same get/put expectations against every
// backend that needs no external service.
func TestBackendContract(t *testing.T) {
	dir := t.TempDir()
	backends := map[string]func(t *testing.T) Backend{
		"fs": func(t *testing.T) Backend {
			return openForTest(t, config.Storage{Driver: "fs", FSRoot: filepath.Join(dir, "fs")})
		},
		"memory": func(t *testing.T) Backend {
			return openForTest(t, config.Storage{Driver: "memory"})
		},
		"sqlite": func(t *testing.T) Backend {
			return openForTest(t, config.Storage{Driver: "sqlite", SQLitePath: filepath.Join(dir, "db", "state.db")})
		},
		"s3mock": func(t *testing.T) Backend {
			return NewMockS3ForTests()
		},
	}
	for name, mk := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := mk(t)
			if _, err := b.Get(ctx, "tier/profile"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := b.Put(ctx, "tier/profile", []byte(`{"v":1}`)); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := b.Put(ctx, "tier/profile", []byte(`{"v":2}`)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, err := b.Get(ctx, "tier/profile")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if string(got) != `{"v":2}` {
				t.Fatalf("expected overwritten payload, got %s", got)
			}
			if _, err := b.Get(ctx, "audit/eternal-audit"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("keys must be independent, got %v", err)
			}
		})
	}
}

func TestOpenDefaultsToFilesystem(t *testing.T) {
	b := openForTest(t, config.Storage{FSRoot: t.TempDir()})
	if b.Driver() != DriverFilesystem {
		t.Fatalf("expected fs driver, got %s", b.Driver())
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, closeFn, err := Open(context.Background(), config.Storage{Driver: "floppy"})
	if err == nil {
		t.Fatalf("expected error for unknown driver")
	}
	if closeFn == nil || closeFn() != nil {
		t.Fatalf("close function must be a usable no-op")
	}
}
