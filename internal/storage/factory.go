package storage

import (
	"fmt"
	"strings"

	"github.com/compcontrol/api/internal/config"
)

// NewStore creates a Store instance based on the configuration.
func NewStore(cfg *config.Config) (Store, error) {
	switch strings.ToLower(cfg.StoreType) {
	case "sqlite", "":
		return NewSQLiteStore(cfg.StorePath, cfg.ConnectionsTable, cfg.KeysTable)

	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis store selected but redis_url is not configured")
		}
		return NewRedisStore(cfg.RedisURL, cfg.ConnectionsTable, cfg.KeysTable)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.StoreType)
	}
}
