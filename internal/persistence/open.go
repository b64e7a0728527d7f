package persistence

import (
	"apexfolio-bot-go/internal/models"
	"fmt"
	"os"
	"path/filepath"
)

// Open builds the RecordStore selected by cfg.Driver.
func Open(cfg models.StoreConfig) (RecordStore, error) {
	switch cfg.Driver {
	case "badger":
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create badger dir %s: %w", cfg.Path, err)
		}
		return NewBadgerRepository(cfg.Path)
	case "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir %s: %w", dir, err)
			}
		}
		return NewSQLiteRepository(cfg.Path)
	case "redis":
		return NewRedisRepository(RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
	case "memory":
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
