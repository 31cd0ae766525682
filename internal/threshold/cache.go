package threshold

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "threshold:"

// CachedStore is a read-through Redis cache in front of another Store.
// Cache failures degrade to the backing store; a Redis outage must never
// block a login.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(inner Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (s *CachedStore) Get(ctx context.Context, name string) (string, error) {
	key := cacheKeyPrefix + name
	cached, err := s.client.Get(ctx, key).Result()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.logger.WarnContext(ctx, "threshold cache read failed", "name", name, "error", err)
	}

	value, err := s.inner.Get(ctx, name)
	if err != nil {
		return "", err
	}
	if setErr := s.client.Set(ctx, key, value, s.ttl).Err(); setErr != nil {
		s.logger.WarnContext(ctx, "threshold cache write failed", "name", name, "error", setErr)
	}
	return value, nil
}

// Invalidate drops a cached threshold so the next read hits the backing
// store. Used after operator updates.
func (s *CachedStore) Invalidate(ctx context.Context, name string) error {
	return s.client.Del(ctx, cacheKeyPrefix+name).Err()
}
