package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Hopsan/hopsan-sub008/internal/config"
	"github.com/Hopsan/hopsan-sub008/pkg/adapters/file"
	"github.com/Hopsan/hopsan-sub008/pkg/adapters/memory"
	"github.com/Hopsan/hopsan-sub008/pkg/adapters/redis"
	"github.com/Hopsan/hopsan-sub008/pkg/adapters/sqlite"
	"github.com/Hopsan/hopsan-sub008/pkg/persistence/middleware"
	"github.com/Hopsan/hopsan-sub008/pkg/ports"
)

// backend is a configured history store plus what comes with it.
type backend struct {
	Store  ports.HistoryStore
	Locker ports.DistributedLocker
	close  func() error
}

func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// openBackend builds the store named by c, wrapped in the configured middleware.
func openBackend(c *config.Config, logger *slog.Logger) (*backend, error) {
	b := &backend{}
	var store ports.HistoryStore

	switch c.Store.Backend {
	case "memory":
		store = memory.NewStore()
	case "file":
		store = file.New(c.Store.File.Path, file.WithFormat(file.Format(c.Store.File.Format)))
	case "redis":
		r := redis.New(c.Store.Redis.Addr, c.Store.Redis.Password, c.Store.Redis.DB,
			redis.WithPrefix(c.Store.Redis.Prefix),
			redis.WithTTL(c.Store.Redis.TTL),
		)
		store = r
		b.Locker = redis.NewLocker(r.Client(), c.Store.Redis.Prefix)
		b.close = r.Close
	case "sqlite":
		if dir := filepath.Dir(c.Store.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		s, err := sqlite.New(c.Store.SQLite.Path)
		if err != nil {
			return nil, err
		}
		store = s
		b.close = s.Close
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	var mws []middleware.Middleware
	if c.Store.Compress {
		mws = append(mws, middleware.NewCompressionMiddleware())
	}
	key, fallback, err := c.Store.Keys()
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	if key != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    key,
			FallbackKeys: fallback,
		}))
	}
	b.Store = middleware.Chain(store, mws...)

	logger.Debug("history store ready",
		"backend", c.Store.Backend,
		"compress", c.Store.Compress,
		"encrypted", key != nil,
	)
	return b, nil
}
