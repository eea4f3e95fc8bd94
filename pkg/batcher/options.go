package batcher

import (
	"log/slog"
	"time"
)

const (
	DefaultSize        = 100
	DefaultLinger      = 10 * time.Millisecond
	DefaultMaxInFlight = 1
)

type options struct {
	size        int
	linger      time.Duration
	maxInFlight int
	name        string
	logger      *slog.Logger
}

func defaultOptions() *options {
	return &options{
		size:        DefaultSize,
		linger:      DefaultLinger,
		maxInFlight: DefaultMaxInFlight,
		name:        "batcher",
		logger:      slog.Default(),
	}
}

// Option configures a Batcher.
type Option func(*options)

// WithSize sets the number of items that closes a batch immediately.
func WithSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.size = n
		}
	}
}

// WithLinger sets how long the first item of a batch waits for company.
func WithLinger(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.linger = d
		}
	}
}

// WithMaxInFlight bounds how many batches are flushed concurrently.
func WithMaxInFlight(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxInFlight = n
		}
	}
}

// WithName sets the component name used in log records.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
