package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Backends accepted by OpenStore.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendArango = "arango"
)

// StoreConfig selects and configures a Store backend.
type StoreConfig struct {
	Backend    string
	SQLitePath string
	Arango     ArangoConfig
}

// OpenStore builds the configured backend. An empty backend selects memory.
func OpenStore(ctx context.Context, cfg StoreConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite cache backend needs a path")
		}
		return NewSQLiteStore(cfg.SQLitePath)
	case BackendArango:
		if cfg.Arango.URL == "" {
			return nil, fmt.Errorf("arango cache backend needs a URL")
		}
		return NewArangoStore(ctx, cfg.Arango, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
