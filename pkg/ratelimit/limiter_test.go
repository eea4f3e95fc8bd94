package ratelimit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rogertalk/roger-api-sub001/pkg/ratelimit"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimiter(t *testing.T, clock *fakeClock, rules ratelimit.Rules) (*ratelimit.Limiter, *ratelimit.MemoryStore) {
	t.Helper()
	store := ratelimit.NewMemoryStore(ratelimit.WithStoreClock(clock.Now))
	t.Cleanup(func() { _ = store.Close() })
	opts := []ratelimit.Option{ratelimit.WithClock(clock.Now)}
	if rules != nil {
		opts = append(opts, ratelimit.WithRules(rules))
	}
	l, err := ratelimit.New(store, opts...)
	require.NoError(t, err)
	return l, store
}

func TestLimiter_SMSCodeBucket(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l, _ := newLimiter(t, clock, nil)
	ctx := context.Background()

	for i := range 100 {
		ok, err := l.Spend(ctx, "challenge", "sms_code")
		require.NoError(t, err)
		require.True(t, ok, "spend %d should succeed", i+1)
	}

	ok, err := l.Spend(ctx, "challenge", "sms_code")
	require.NoError(t, err)
	assert.False(t, ok, "101st spend must be denied")

	clock.Advance(time.Second)
	for i := range 5 {
		ok, err := l.Spend(ctx, "challenge", "sms_code")
		require.NoError(t, err)
		assert.True(t, ok, "refilled spend %d should succeed", i+1)
	}
	ok, err = l.Spend(ctx, "challenge", "sms_code")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLimiter_WildcardFallback(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l, store := newLimiter(t, clock, ratelimit.Rules{
		"challenge:ip:*": {Size: 2, Rate: 0.001},
	})
	ctx := context.Background()

	for range 2 {
		ok, err := l.Spend(ctx, "challenge", "ip", "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Spend(ctx, "challenge", "ip", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Each concrete key owns its bucket.
	ok, err = l.Spend(ctx, "challenge", "ip", "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err := store.Load(ctx, "challenge:ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestLimiter_UnknownKeyIsUnlimited(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l, store := newLimiter(t, clock, ratelimit.Rules{
		"default": {Size: 1, Rate: 1},
	})

	for range 10 {
		ok, err := l.Spend(context.Background(), "push", "content-vote", "42")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 0, store.Len())
}

func TestLimiter_EmptyKeyUsesDefault(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l, _ := newLimiter(t, clock, ratelimit.Rules{
		"default": {Size: 1, Rate: 1},
	})

	ok, err := l.Spend(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Spend(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLimiter_SpendN(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l, _ := newLimiter(t, clock, ratelimit.Rules{
		"challenge:call_code": {Size: 5, Rate: 0.1},
	})
	ctx := context.Background()

	t.Run("more than size is denied", func(t *testing.T) {
		ok, err := l.SpendN(ctx, 6, "challenge", "call_code")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("denied spend keeps tokens", func(t *testing.T) {
		ok, err := l.SpendN(ctx, 4, "challenge", "call_code")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = l.SpendN(ctx, 2, "challenge", "call_code")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = l.SpendN(ctx, 1, "challenge", "call_code")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("non-positive n", func(t *testing.T) {
		_, err := l.SpendN(ctx, 0, "challenge", "call_code")
		assert.ErrorIs(t, err, ratelimit.ErrInvalidTokens)
	})
}

func TestLimiter_RefillIsCapped(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l, store := newLimiter(t, clock, ratelimit.Rules{
		"k": {Size: 3, Rate: 1},
	})
	ctx := context.Background()

	ok, err := l.Spend(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(time.Hour)
	ok, err = l.Spend(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	b, found, err := store.Load(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 2, b.Tokens, 1e-9)
	assert.Equal(t, clock.Now(), b.Timestamp)
}

type failingStore struct{ err error }

func (s failingStore) Load(context.Context, string) (ratelimit.Bucket, bool, error) {
	return ratelimit.Bucket{}, false, s.err
}

func (s failingStore) Save(context.Context, string, ratelimit.Bucket, time.Duration) error {
	return s.err
}

func TestLimiter_StoreErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	l, err := ratelimit.New(failingStore{err: boom})
	require.NoError(t, err)

	ok, err := l.Spend(context.Background(), "challenge", "sms_code")
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := ratelimit.New(nil)
	assert.ErrorIs(t, err, ratelimit.ErrStoreRequired)

	store := ratelimit.NewMemoryStore()
	defer store.Close()
	_, err = ratelimit.New(store, ratelimit.WithRules(ratelimit.Rules{"bad": {Size: 1, Rate: 0}}))
	assert.ErrorIs(t, err, ratelimit.ErrInvalidRule)
}

func TestRules_Resolve(t *testing.T) {
	t.Parallel()

	rules := ratelimit.DefaultRules()

	tests := []struct {
		name    string
		parts   []string
		wantKey string
		wantOK  bool
		want    ratelimit.Rule
	}{
		{"exact", []string{"challenge", "sms_code"}, "challenge:sms_code", true, ratelimit.Rule{Size: 100, Rate: 5}},
		{"wildcard", []string{"challenge", "ip", "1.2.3.4"}, "challenge:ip:1.2.3.4", true, ratelimit.Rule{Size: 20, Rate: 0.001}},
		{"empty", nil, "default", true, ratelimit.Rule{Size: 100, Rate: 10}},
		{"unknown", []string{"emit", "1.2.3.4"}, "emit:1.2.3.4", false, ratelimit.Rule{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, rule, ok := rules.Resolve(tt.parts...)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, rule)
		})
	}
}
