package cache

import (
	"context"
	"fmt"
	"time"

	"go-school-admin/internal/config"
)

// Cache stores opaque values under string keys with a TTL. Get returns nil, nil
// on a miss; callers treat every cache error as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New creates the cache backend selected by cfg.Driver.
func New(cfg config.CacheConfig) (Cache, error) {
	switch cfg.Driver {
	case "", "sqlite":
		c, err := NewSQLite(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "redis":
		c, err := NewRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", cfg.Driver)
	}
}
