package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/maligree/corpus-import/pkg/runner"
)

var (
	// ErrCacheMiss indicates the requested unit was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "import_content_cache_hits_total",
			Help: "Total number of unit fetches served from cache",
		},
	)
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "import_content_cache_misses_total",
			Help: "Total number of unit fetches that went to the remote service",
		},
	)
	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_content_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set"
	)
)

// cacheEntry is the stored form of one fetched unit.
type cacheEntry struct {
	Data     []byte    `json:"data"`
	CachedAt time.Time `json:"cached_at"`
}

// CacheConfig configures the content cache.
type CacheConfig struct {
	// TTL is how long a fetched unit stays valid. Re-imports within
	// the TTL skip the remote service entirely.
	TTL time.Duration

	// Prefix namespaces cache keys (default "corpus-cache").
	Prefix string
}

// DefaultCacheConfig favors long-lived entries; corpus content rarely
// changes between import runs.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:    24 * time.Hour,
		Prefix: "corpus-cache",
	}
}

// CachedFetcher wraps a Fetcher with a Redis-backed content cache.
// Cache failures degrade to a remote fetch, never to a unit failure.
type CachedFetcher struct {
	next   runner.Fetcher
	redis  *redis.Client
	cfg    CacheConfig
	logger zerolog.Logger
}

// NewCachedFetcher wraps next with the cache.
func NewCachedFetcher(next runner.Fetcher, redisClient *redis.Client, cfg CacheConfig, logger zerolog.Logger) (*CachedFetcher, error) {
	if next == nil {
		return nil, fmt.Errorf("wrapped fetcher is required")
	}
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheConfig().TTL
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultCacheConfig().Prefix
	}

	return &CachedFetcher{
		next:   next,
		redis:  redisClient,
		cfg:    cfg,
		logger: logger.With().Str("component", "content-cache").Logger(),
	}, nil
}

// FetchUnit implements runner.Fetcher.
func (c *CachedFetcher) FetchUnit(ctx context.Context, collectionPath, groupID string, unitIndex int) (runner.RawContent, error) {
	key := c.key(collectionPath, groupID, unitIndex)

	if data, err := c.get(ctx, key); err == nil {
		cacheHits.Inc()
		c.logger.Debug().Str("key", key).Msg("Cache hit")
		return data, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		cacheErrors.WithLabelValues("get").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed, fetching remote")
	} else {
		cacheMisses.Inc()
	}

	data, err := c.next.FetchUnit(ctx, collectionPath, groupID, unitIndex)
	if err != nil {
		return nil, err
	}

	if err := c.set(ctx, key, data); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}

	return data, nil
}

func (c *CachedFetcher) get(ctx context.Context, key string) (runner.RawContent, error) {
	payload, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry cacheEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}

	return runner.RawContent(entry.Data), nil
}

func (c *CachedFetcher) set(ctx context.Context, key string, data runner.RawContent) error {
	payload, err := json.Marshal(cacheEntry{Data: data, CachedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	if err := c.redis.Set(ctx, key, payload, c.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *CachedFetcher) key(collectionPath, groupID string, unitIndex int) string {
	return fmt.Sprintf("%s:%s:%s:%d", c.cfg.Prefix, collectionPath, groupID, unitIndex)
}
