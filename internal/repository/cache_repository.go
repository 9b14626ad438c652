package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/harmony-timetable-api/pkg/errors"
)

// CacheRepository keeps JSON documents in Redis under a namespace so several
// deployments can share one instance.
type CacheRepository struct {
	client    *redis.Client
	namespace string
	logger    *zap.Logger
}

// NewCacheRepository constructs a cache repository. An empty namespace stores
// keys as given.
func NewCacheRepository(client *redis.Client, namespace string, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{
		client:    client,
		namespace: strings.TrimSuffix(namespace, ":"),
		logger:    logger,
	}
}

func (r *CacheRepository) key(raw string) string {
	if r.namespace == "" {
		return raw
	}
	return r.namespace + ":" + raw
}

// Get decodes the document at key into dest. Absent keys yield ErrCacheMiss.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}
	full := r.key(key)
	raw, err := r.client.Get(ctx, full).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return appErrors.ErrCacheMiss
	case err != nil:
		return fmt.Errorf("redis get %s: %w", full, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// A document from an older payload shape is treated as absent.
		r.logger.Warn("discarding undecodable cache entry", zap.String("key", full), zap.Error(err))
		_ = r.client.Unlink(ctx, full).Err()
		return appErrors.ErrCacheMiss
	}
	return nil
}

// Set stores value as JSON. A non-positive ttl keeps the entry until deleted.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value for %s: %w", key, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	full := r.key(key)
	if err := r.client.Set(ctx, full, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", full, err)
	}
	return nil
}

// Delete unlinks key. Missing keys are not an error.
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	full := r.key(key)
	if err := r.client.Unlink(ctx, full).Err(); err != nil {
		return fmt.Errorf("redis unlink %s: %w", full, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *CacheRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return errors.New("redis client not configured")
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
