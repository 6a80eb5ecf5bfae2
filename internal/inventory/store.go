package inventory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nainya/shelftrack/internal/config"
	"github.com/nainya/shelftrack/pkg/persist"
)

// OpenStore builds the document store named by cfg.Backend
func OpenStore(ctx context.Context, cfg config.StoreConfig) (persist.Store, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create store directory: %w", err)
			}
		}
		return persist.NewFileStore(cfg.Path), nil
	case config.BackendSQLite:
		return persist.OpenSQLite(ctx, cfg.SQLitePath, persist.DefaultDocumentName)
	case config.BackendRedis:
		store, err := persist.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisKey)
		if err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		return store, nil
	case config.BackendMemory:
		return persist.NewMemoryStore(nil), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
