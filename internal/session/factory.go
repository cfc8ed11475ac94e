package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gamezone/internal/storage"
)

// Backend names accepted by SESSION_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// CleanupFunc releases resources held by a storage backend.
type CleanupFunc func() error

// StorageResult contains the storage and its optional cleanup function.
type StorageResult struct {
	Storage Storage
	Cleanup CleanupFunc
	// Ping is nil when the backend has nothing to probe.
	Ping func(context.Context) error
}

// StorageConfig selects and configures a backend.
type StorageConfig struct {
	Backend  string
	TTL      time.Duration
	RedisURL string
	// DB is required for the sqlite backend; it is owned by the caller.
	DB *storage.DB
}

// NewStorage creates the session storage named by cfg.Backend.
func NewStorage(ctx context.Context, cfg StorageConfig, logger *slog.Logger) (*StorageResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case BackendMemory, "":
		logger.Info("Initialized memory session storage", "ttl", cfg.TTL)
		return &StorageResult{Storage: NewMemoryStorage(cfg.TTL)}, nil

	case BackendSQLite:
		if cfg.DB == nil {
			return nil, fmt.Errorf("sqlite session storage requires a database")
		}
		logger.Info("Initialized SQLite session storage", "ttl", cfg.TTL)
		return &StorageResult{Storage: NewSQLiteStorage(cfg.DB, cfg.TTL), Ping: cfg.DB.Ping}, nil

	case BackendRedis:
		rs, err := NewRedisStorage(ctx, cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis session storage: %w", err)
		}
		logger.Info("Initialized Redis session storage", "ttl", cfg.TTL)
		return &StorageResult{Storage: rs, Cleanup: rs.Close, Ping: rs.Ping}, nil

	default:
		return nil, fmt.Errorf("unsupported session backend: %s", cfg.Backend)
	}
}
