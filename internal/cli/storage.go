// AngelaMos | 2026
// storage.go

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/config"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/session"
)

// OpenStorage builds the session backend named by cfg. The returned func
// releases connections and is safe to call when nothing was opened.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (session.Storage, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case config.StorageMemory:
		return session.NewMemoryStorage(), noop, nil

	case config.StorageFile:
		storage, err := session.NewFileStorage(cfg.Path, cfg.Profile)
		if err != nil {
			return nil, noop, err
		}
		return storage, noop, nil

	case config.StorageRedis:
		rdb, err := core.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return session.NewRedisStorage(rdb.Client, cfg.Profile), rdb.Close, nil

	case config.StorageSQL:
		dsn, err := sqlDSN(cfg)
		if err != nil {
			return nil, noop, err
		}

		db, err := core.NewDatabase(ctx, cfg.SQLDriver, dsn)
		if err != nil {
			return nil, noop, err
		}

		storage, err := session.NewSQLStorage(ctx, db.DB, cfg.Profile)
		if err != nil {
			_ = db.Close() //nolint:errcheck // cleanup on setup failure
			return nil, noop, err
		}
		return storage, db.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// sqlDSN defaults sqlite to one database file shared by every profile.
func sqlDSN(cfg config.StorageConfig) (string, error) {
	if cfg.SQLDSN != "" {
		return cfg.SQLDSN, nil
	}

	dir := cfg.Path
	if dir == "" {
		var err error
		if dir, err = session.DefaultDir(); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create storage dir: %w", err)
	}
	return filepath.Join(dir, "sessions.db"), nil
}
