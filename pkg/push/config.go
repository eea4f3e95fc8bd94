package push

import "time"

// Config holds push gateway settings. An empty Endpoint switches the client
// to development mode, where bodies are logged instead of posted.
type Config struct {
	Endpoint    string        `env:"PUSH_SERVICE_URL"`
	Timeout     time.Duration `env:"PUSH_TIMEOUT" envDefault:"60s"`
	BatchSize   int           `env:"PUSH_BATCH_SIZE" envDefault:"500"`
	Linger      time.Duration `env:"PUSH_LINGER" envDefault:"50ms"`
	MaxInFlight int           `env:"PUSH_MAX_IN_FLIGHT" envDefault:"1"`
}

// NewFromConfig creates a client from cfg.
func NewFromConfig(cfg Config, opts ...Option) *Client {
	base := []Option{
		WithEndpoint(cfg.Endpoint),
		WithTimeout(cfg.Timeout),
		WithBatchSize(cfg.BatchSize),
		WithLinger(cfg.Linger),
		WithMaxInFlight(cfg.MaxInFlight),
	}
	return New(append(base, opts...)...)
}
