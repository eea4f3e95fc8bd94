package redis

import "time"

// Config describes the optional Redis connection. An empty ConnectionURL
// means the hub runs without Redis.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL"`                              // ConnectionURL in the form "redis://:password@localhost:6379/0".
	PoolSize       int           `env:"REDIS_POOL_SIZE" envDefault:"10"`        // PoolSize overrides the client's socket pool size when > 0.
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`    // RetryAttempts is the number of pings before giving up.
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`   // RetryInterval is the base wait between attempts, multiplied by the attempt number.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"` // ConnectTimeout bounds the whole connect loop.
}

// Enabled reports whether a connection URL is configured.
func (c Config) Enabled() bool { return c.ConnectionURL != "" }
