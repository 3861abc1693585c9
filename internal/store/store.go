// Package store provides the persist collaborator: durable unit
// storage behind a backend-selectable interface.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/maligree/corpus-import/pkg/runner"
)

// Backend names accepted by New.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Store persists structured units. Every implementation also satisfies
// runner.Persister.
type Store interface {
	// PersistUnit durably writes one unit and returns its storage
	// reference.
	PersistUnit(ctx context.Context, unit *runner.StructuredUnit) (string, error)

	// Close releases the backend connection.
	Close() error
}

// Config selects and configures a storage backend.
type Config struct {
	// Backend is one of sqlite or redis. Empty defaults to sqlite, the
	// embedded store.
	Backend string

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string

	// RedisAddr is the host:port for the redis backend.
	RedisAddr string

	// RedisKeyPrefix namespaces unit keys (default "corpus").
	RedisKeyPrefix string
}

// New creates the configured store. Unknown backend names fail fast.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (Store, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendSQLite
	}

	switch backend {
	case BackendSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = "corpus.db"
		}
		return NewSQLiteStore(path, logger)
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis backend requires an address")
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return NewRedisStore(pingCtx, cfg.RedisAddr, cfg.RedisKeyPrefix, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q (valid: %s, %s)", backend, BackendSQLite, BackendRedis)
	}
}
