package storage

import (
	"fmt"

	"github.com/rewindlauncher/backend/config"
	"github.com/rewindlauncher/backend/internal/domain"
)

// Open builds the key-value store selected by storage.type
func Open(cfg config.StorageConfig) (domain.KeyValueStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "valkey":
		return OpenValkey(ValkeyOptions{
			Address:   cfg.Valkey.Address,
			Password:  cfg.Valkey.Password,
			DB:        cfg.Valkey.DB,
			KeyPrefix: cfg.Valkey.KeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
