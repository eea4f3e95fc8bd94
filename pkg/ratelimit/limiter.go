package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/rogertalk/roger-api-sub001/pkg/logger"
)

// DefaultRuleKey is used when Spend is called without key parts.
const DefaultRuleKey = "default"

// Limiter is a token bucket limiter keyed by ':'-joined parts with a
// wildcard fallback on the last part.
type Limiter struct {
	store  Store
	rules  Rules
	now    Clock
	logger *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithRules replaces the rule table.
func WithRules(rules Rules) Option {
	return func(l *Limiter) {
		if rules != nil {
			l.rules = rules
		}
	}
}

// WithClock overrides time.Now.
func WithClock(clock Clock) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.now = clock
		}
	}
}

// WithLogger sets the logger used for denials.
func WithLogger(log *slog.Logger) Option {
	return func(l *Limiter) {
		if log != nil {
			l.logger = log
		}
	}
}

// New creates a limiter over store. Rules default to DefaultRules.
func New(store Store, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	l := &Limiter{
		store:  store,
		rules:  DefaultRules(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.rules.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Spend consumes one token for the key built from parts.
func (l *Limiter) Spend(ctx context.Context, parts ...string) (bool, error) {
	return l.SpendN(ctx, 1, parts...)
}

// SpendN consumes n tokens for the key built from parts. Keys without a
// matching rule are unlimited and never touch the store. A request larger
// than the bucket is always denied. Denied requests leave the bucket as is.
func (l *Limiter) SpendN(ctx context.Context, n int, parts ...string) (bool, error) {
	if n <= 0 {
		return false, ErrInvalidTokens
	}
	key, rule, ok := l.rules.Resolve(parts...)
	if !ok {
		return true, nil
	}
	need := float64(n)
	if need > rule.Size {
		return false, nil
	}

	now := l.now()
	b, found, err := l.store.Load(ctx, key)
	if err != nil {
		return false, err
	}
	if !found {
		b = Bucket{Tokens: rule.Size, Timestamp: now}
	}

	elapsed := now.Sub(b.Timestamp).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	tokens := math.Min(rule.Size, b.Tokens+elapsed*rule.Rate)
	if tokens-need < 0 {
		l.logger.LogAttrs(ctx, slog.LevelDebug, "rate limit exceeded",
			logger.RateLimitKey(key),
			slog.Float64("tokens", tokens),
		)
		return false, nil
	}
	tokens -= need

	ttl := time.Duration((rule.Size - tokens) / rule.Rate * float64(time.Second))
	if err := l.store.Save(ctx, key, Bucket{Tokens: tokens, Timestamp: now}, ttl); err != nil {
		return false, err
	}
	return true, nil
}

// Key joins parts with ':'; no parts yield DefaultRuleKey.
func Key(parts ...string) string {
	if len(parts) == 0 {
		return DefaultRuleKey
	}
	return strings.Join(parts, ":")
}
