package push

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultLinger outlasts the fan-out linger, so bodies from every batch cut
// in one tick share a request.
const (
	DefaultTimeout   = 60 * time.Second
	DefaultBatchSize = 500
	DefaultLinger    = 50 * time.Millisecond
)

type options struct {
	endpoint    string
	httpClient  *http.Client
	timeout     time.Duration
	batchSize   int
	linger      time.Duration
	maxInFlight int
	logger      *slog.Logger
}

func defaultOptions() *options {
	return &options{
		timeout:     DefaultTimeout,
		batchSize:   DefaultBatchSize,
		linger:      DefaultLinger,
		maxInFlight: 1,
		logger:      slog.Default(),
	}
}

// Option configures a Client.
type Option func(*options)

// WithEndpoint sets the gateway URL. Empty means development mode.
func WithEndpoint(url string) Option {
	return func(o *options) {
		o.endpoint = url
	}
}

// WithHTTPClient replaces the HTTP client. Its redirect policy is kept as
// given; the default client never follows redirects.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithTimeout bounds one gateway request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithBatchSize sets how many bodies share one POST.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithLinger sets how long the first body of a batch waits for more.
func WithLinger(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.linger = d
		}
	}
}

// WithMaxInFlight bounds concurrent gateway requests.
func WithMaxInFlight(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxInFlight = n
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
