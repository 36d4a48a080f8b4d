package database

import (
	"fmt"
	"os"
	"path/filepath"

	"drivevault/internal/config"
	"drivevault/internal/drives"
)

// NewStoreFromConfig creates a Store based on the database config type.
func NewStoreFromConfig(cfg config.DatabaseConfig, clock drives.Clock, idgen drives.IDGenerator) (*Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewStore(filepath.Join(cfg.DataDir, "drivevault.db"), clock, idgen)
	case "memory":
		return NewStore(":memory:", clock, idgen)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
