package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces rate-limit counters in Redis.
const DefaultKeyPrefix = "ratelimit:"

// RedisStore implements CounterStore with INCR and EXPIRE NX against a shared
// Redis deployment, so every gateway instance sees the same counters.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the key namespace. Default: "ratelimit:".
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client redis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment runs INCR and EXPIRE NX in one MULTI/EXEC transaction. The
// counter and its expiry are written together, and a key that somehow lost
// its TTL gets one again on the next hit.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	if s.client == nil {
		return 0, ErrStoreUnavailable
	}

	k := s.prefix + key
	var incr *redis.IntCmd
	if _, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, window)
		return nil
	}); err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}

	return incr.Val(), nil
}

// TTL returns the remaining lifetime of the counter under key.
// A key without expiry or a missing key yields zero.
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	if s.client == nil {
		return 0, ErrStoreUnavailable
	}

	ttl, err := s.client.TTL(ctx, s.prefix+key).Result()
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
