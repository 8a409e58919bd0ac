package store

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/alicebob/miniredis/v2"
	"github.com/desertthunder/novadrive/internal/shared"
	"github.com/redis/go-redis/v9"
)

var quiet = shared.NewLogger(io.Discard)

// setupSQLite opens an in-memory SQLite store at the latest schema
func setupSQLite(t *testing.T) KV {
	t.Helper()

	kv, err := OpenSQLite(context.Background(), shared.StorageConfig{Path: ":memory:"}, quiet)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	return kv
}

func setupRedis(t *testing.T) KV {
	t.Helper()

	mr := miniredis.RunT(t)
	return NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestKV(t *testing.T) {
	backends := []struct {
		name  string
		setup func(t *testing.T) KV
	}{
		{name: "sqlite", setup: setupSQLite},
		{name: "redis", setup: setupRedis},
		{name: "memory", setup: func(*testing.T) KV { return NewMemoryStore() }},
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("Get missing", func(t *testing.T) {
				kv := b.setup(t)
				defer kv.Close()

				_, ok, err := kv.Get(ctx, "missing")
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if ok {
					t.Error("expected missing key to be absent")
				}
			})

			t.Run("Set and overwrite", func(t *testing.T) {
				kv := b.setup(t)
				defer kv.Close()

				if err := kv.Set(ctx, "k", "v1"); err != nil {
					t.Fatalf("failed to set: %v", err)
				}
				if err := kv.Set(ctx, "k", "v2"); err != nil {
					t.Fatalf("failed to overwrite: %v", err)
				}

				v, ok, err := kv.Get(ctx, "k")
				if err != nil || !ok || v != "v2" {
					t.Errorf("expected v2, got %q (ok=%v, err=%v)", v, ok, err)
				}
			})

			t.Run("SetMany and DeleteMany", func(t *testing.T) {
				kv := b.setup(t)
				defer kv.Close()

				if err := kv.SetMany(ctx, map[string]string{"a": "1", "b": "2", "c": "3"}); err != nil {
					t.Fatalf("failed to set many: %v", err)
				}
				if err := kv.DeleteMany(ctx, "a", "b"); err != nil {
					t.Fatalf("failed to delete many: %v", err)
				}

				for _, k := range []string{"a", "b"} {
					if _, ok, _ := kv.Get(ctx, k); ok {
						t.Errorf("expected %s to be deleted", k)
					}
				}
				if v, ok, _ := kv.Get(ctx, "c"); !ok || v != "3" {
					t.Errorf("expected c to survive, got %q", v)
				}
			})

			t.Run("Delete is idempotent", func(t *testing.T) {
				kv := b.setup(t)
				defer kv.Close()

				if err := kv.Delete(ctx, "never-set"); err != nil {
					t.Errorf("deleting missing key should not error: %v", err)
				}
			})
		})
	}
}

func TestOpen(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		kv, err := Open(context.Background(), shared.StorageConfig{Driver: "memory"}, quiet)
		if err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		defer kv.Close()
		if _, ok := kv.(*MemoryStore); !ok {
			t.Errorf("expected *MemoryStore, got %T", kv)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		kv, err := Open(context.Background(), shared.StorageConfig{Driver: "sqlite", Path: ":memory:"}, quiet)
		if err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		defer kv.Close()
		if err := kv.Set(context.Background(), "k", "v"); err != nil {
			t.Errorf("expected migrated store, got %v", err)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(context.Background(), shared.StorageConfig{Driver: "etcd"}, quiet)
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestSchema(t *testing.T) {
	ctx := context.Background()

	t.Run("embedded migrations are ordered and complete", func(t *testing.T) {
		all, err := Migrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}
		if len(all) == 0 {
			t.Fatal("expected at least one migration")
		}
		for i, m := range all {
			if m.Name == "" {
				t.Errorf("migration %d has no name", m.Version)
			}
			if i > 0 && m.Version <= all[i-1].Version {
				t.Errorf("migrations not sorted: %d after %d", m.Version, all[i-1].Version)
			}
		}
	})

	t.Run("malformed files are rejected", func(t *testing.T) {
		tests := []struct {
			name string
			fsys fstest.MapFS
		}{
			{"missing down", fstest.MapFS{"m/0001_a.up.sql": {Data: []byte("SELECT 1;")}}},
			{"no version", fstest.MapFS{"m/a.up.sql": {Data: []byte("SELECT 1;")}, "m/a.down.sql": {Data: []byte("SELECT 1;")}}},
			{"zero version", fstest.MapFS{"m/0000_a.up.sql": {Data: []byte("SELECT 1;")}, "m/0000_a.down.sql": {Data: []byte("SELECT 1;")}}},
			{"bad suffix", fstest.MapFS{"m/0001_a.sql": {Data: []byte("SELECT 1;")}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := loadMigrations(tt.fsys, "m"); err == nil {
					t.Error("expected an error")
				}
			})
		}
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		db, err := OpenDB(ctx, shared.StorageConfig{Path: ":memory:"})
		if err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		defer db.Close()

		all, _ := Migrations()
		applied, err := Migrate(ctx, db, quiet)
		if err != nil {
			t.Fatalf("first migrate failed: %v", err)
		}
		if len(applied) != len(all) {
			t.Errorf("expected %d applied, got %v", len(all), applied)
		}

		applied, err = Migrate(ctx, db, quiet)
		if err != nil || len(applied) != 0 {
			t.Errorf("expected nothing to apply, got %v %v", applied, err)
		}
		if v, _ := SchemaVersion(ctx, db); v != all[len(all)-1].Version {
			t.Errorf("expected version %d, got %d", all[len(all)-1].Version, v)
		}
	})

	t.Run("rollback walks back to empty", func(t *testing.T) {
		db, err := OpenDB(ctx, shared.StorageConfig{Path: ":memory:"})
		if err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		defer db.Close()
		if _, err := Migrate(ctx, db, quiet); err != nil {
			t.Fatalf("migrate failed: %v", err)
		}

		all, _ := Migrations()
		for i := len(all) - 1; i >= 0; i-- {
			want := 0
			if i > 0 {
				want = all[i-1].Version
			}
			got, err := Rollback(ctx, db, quiet)
			if err != nil || got != want {
				t.Fatalf("expected rollback to %d, got %d %v", want, got, err)
			}
		}

		if _, err := db.ExecContext(ctx, "SELECT key FROM kv LIMIT 1"); err == nil {
			t.Error("expected kv table to be dropped")
		}
		if _, err := Rollback(ctx, db, quiet); !errors.Is(err, shared.ErrNoRollback) {
			t.Errorf("expected ErrNoRollback, got %v", err)
		}
	})

	t.Run("newer schema is refused", func(t *testing.T) {
		db, err := OpenDB(ctx, shared.StorageConfig{Path: ":memory:"})
		if err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		defer db.Close()
		if _, err := db.ExecContext(ctx, "PRAGMA user_version = 9999"); err != nil {
			t.Fatalf("failed to set version: %v", err)
		}
		if _, err := Migrate(ctx, db, quiet); !errors.Is(err, shared.ErrSchemaTooNew) {
			t.Errorf("expected ErrSchemaTooNew, got %v", err)
		}
	})

	t.Run("file database survives reopen", func(t *testing.T) {
		cfg := shared.StorageConfig{Path: filepath.Join(t.TempDir(), "nova.db")}
		kv, err := OpenSQLite(ctx, cfg, quiet)
		if err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		if err := kv.Set(ctx, "k", "v"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		kv.Close()

		kv, err = OpenSQLite(ctx, cfg, quiet)
		if err != nil {
			t.Fatalf("failed to reopen: %v", err)
		}
		defer kv.Close()
		if v, ok, _ := kv.Get(ctx, "k"); !ok || v != "v" {
			t.Errorf("expected persisted value, got %q %v", v, ok)
		}
	})
}
