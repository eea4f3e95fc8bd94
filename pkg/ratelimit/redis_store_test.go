package ratelimit_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rogertalk/roger-api-sub001/pkg/ratelimit"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRedisStore_RoundTrip(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	prefix := "test:" + uuid.NewString() + ":"
	store := ratelimit.NewRedisStore(client, ratelimit.WithKeyPrefix(prefix))

	_, ok, err := store.Load(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	b := ratelimit.Bucket{Tokens: 2.5, Timestamp: time.Now().UTC().Truncate(time.Millisecond)}
	require.NoError(t, store.Save(ctx, "k", b, time.Minute))

	got, ok, err := store.Load(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, b.Tokens, got.Tokens, 1e-9)
	assert.True(t, b.Timestamp.Equal(got.Timestamp))

	ttl, err := client.TTL(ctx, prefix+"k").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisStore_WithLimiter(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	store := ratelimit.NewRedisStore(client, ratelimit.WithKeyPrefix("test:"+uuid.NewString()+":"))

	l, err := ratelimit.New(store, ratelimit.WithRules(ratelimit.Rules{"otp": {Size: 2, Rate: 0.001}}))
	require.NoError(t, err)

	for range 2 {
		ok, err := l.Spend(ctx, "otp")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Spend(ctx, "otp")
	require.NoError(t, err)
	assert.False(t, ok)
}
