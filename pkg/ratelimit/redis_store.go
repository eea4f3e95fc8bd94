package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces limiter keys in a shared Redis database.
const DefaultRedisPrefix = "ratelimit:"

// RedisStore keeps buckets in Redis as JSON values with expiry.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix overrides DefaultRedisPrefix.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a store backed by client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client, prefix: DefaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the bucket for key. Missing keys report ok=false.
func (s *RedisStore) Load(ctx context.Context, key string) (Bucket, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Bucket{}, false, nil
	}
	if err != nil {
		return Bucket{}, false, errors.Join(ErrStoreUnavailable, err)
	}

	var b Bucket
	if err := json.Unmarshal(raw, &b); err != nil {
		// A corrupt value is treated as absent and will be overwritten.
		return Bucket{}, false, nil
	}
	return b, true, nil
}

// Save writes b under key. A zero ttl keeps the key without expiry.
func (s *RedisStore) Save(ctx context.Context, key string, b Bucket, ttl time.Duration) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, ttl).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
