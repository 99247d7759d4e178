package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/vcscsvcscs/medassist/internal/config"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Get when the key has never been written
var ErrNotFound = errors.New("key not found")

// KV is the local key/value store backing all persisted state.
// Values are opaque bytes; callers own the encoding.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Open creates the KV backend selected by configuration
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (KV, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns, logger)
	case "redis":
		return NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyPrefix, logger)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
