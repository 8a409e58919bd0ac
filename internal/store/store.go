// package store provides durable key-value storage for credentials, settings, and playlists.
package store

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/novadrive/internal/shared"
	"github.com/redis/go-redis/v9"
)

// KV is a durable string key-value store.
//
// SetMany and DeleteMany apply all keys or none.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys ...string) error
	Close() error
}

// Open builds the [KV] backend selected by the storage config.
//
// The sqlite backend is migrated to the latest schema before it is returned.
func Open(ctx context.Context, cfg shared.StorageConfig, logger *log.Logger) (KV, error) {
	switch cfg.Driver {
	case "", "sqlite":
		kv, err := OpenSQLite(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return kv, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return NewRedisStore(client), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", shared.ErrInvalidConfig, cfg.Driver)
	}
}
