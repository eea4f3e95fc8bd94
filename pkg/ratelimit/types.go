package ratelimit

import (
	"context"
	"time"
)

// Rule describes one token bucket: Size is the capacity and Rate the number
// of tokens refilled per second.
type Rule struct {
	Size float64 `yaml:"size"`
	Rate float64 `yaml:"rate"`
}

// Validate reports whether r can be used to compute refills.
func (r Rule) Validate() error {
	if r.Size <= 0 || r.Rate <= 0 {
		return ErrInvalidRule
	}
	return nil
}

// Rules maps a ':'-joined key, optionally ending in "*", to its rule.
type Rules map[string]Rule

// Bucket is the persisted state of one key.
type Bucket struct {
	Tokens    float64   `json:"tokens"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists buckets. Load reports ok=false for missing or expired keys.
// Implementations are last-writer-wins; no atomicity across Load and Save is
// expected.
type Store interface {
	Load(ctx context.Context, key string) (Bucket, bool, error)
	Save(ctx context.Context, key string, b Bucket, ttl time.Duration) error
}

// Spender is the contract other components depend on, so a stricter
// limiter can replace Limiter without touching callers.
type Spender interface {
	Spend(ctx context.Context, parts ...string) (bool, error)
	SpendN(ctx context.Context, n int, parts ...string) (bool, error)
}

// Clock returns the current time.
type Clock func() time.Time
