package ratelimit

import (
	"github.com/redis/go-redis/v9"
)

// Store backends accepted by Config.Store.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config selects the bucket store and an optional rules file.
type Config struct {
	Store     string `env:"RATELIMIT_STORE" envDefault:"memory"`
	RulesFile string `env:"RATELIMIT_RULES_FILE"`
}

// NewFromConfig builds a Limiter for cfg. client is required for the redis
// store and ignored otherwise. The returned close func releases the store.
func NewFromConfig(cfg Config, client redis.UniversalClient, opts ...Option) (*Limiter, func() error, error) {
	var (
		store   Store
		closeFn = func() error { return nil }
	)
	switch cfg.Store {
	case "", StoreMemory:
		ms := NewMemoryStore()
		store, closeFn = ms, ms.Close
	case StoreRedis:
		if client == nil {
			return nil, nil, ErrStoreRequired
		}
		store = NewRedisStore(client)
	default:
		return nil, nil, ErrUnknownStore
	}

	if cfg.RulesFile != "" {
		rules, err := LoadRules(cfg.RulesFile)
		if err != nil {
			_ = closeFn()
			return nil, nil, err
		}
		opts = append([]Option{WithRules(rules)}, opts...)
	}

	l, err := New(store, opts...)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return l, closeFn, nil
}
