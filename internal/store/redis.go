package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/maligree/corpus-import/pkg/runner"
)

// RedisStore keeps units as JSON values keyed by their position in the
// corpus. Suited to staging runs where a warm shared store matters
// more than a file on disk.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, prefix string, logger zerolog.Logger) (*RedisStore, error) {
	if prefix == "" {
		prefix = "corpus"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger.With().Str("component", "redis-store").Logger(),
	}, nil
}

// PersistUnit implements Store. The key doubles as the storage
// reference.
func (s *RedisStore) PersistUnit(ctx context.Context, unit *runner.StructuredUnit) (string, error) {
	key := s.unitKey(unit.CollectionID, unit.GroupID, unit.Index)

	payload, err := json.Marshal(unit)
	if err != nil {
		return "", fmt.Errorf("marshal unit %s: %w", key, err)
	}

	if err := s.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return "", fmt.Errorf("set %s: %w", key, err)
	}

	s.logger.Debug().
		Str("key", key).
		Int("bytes", len(payload)).
		Msg("Unit persisted")

	return key, nil
}

// GetUnit reads one unit back, for verification tooling.
func (s *RedisStore) GetUnit(ctx context.Context, collectionID, groupID string, index int) (*runner.StructuredUnit, error) {
	key := s.unitKey(collectionID, groupID, index)

	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var unit runner.StructuredUnit
	if err := json.Unmarshal(payload, &unit); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}

	return &unit, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) unitKey(collectionID, groupID string, index int) string {
	return fmt.Sprintf("%s:%s:%s:%d", s.prefix, collectionID, groupID, index)
}
