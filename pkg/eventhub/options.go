package eventhub

import (
	"log/slog"
	"time"

	"github.com/rogertalk/roger-api-sub001/pkg/ratelimit"
)

const (
	DefaultBatchSize   = 100
	DefaultLinger      = 10 * time.Millisecond
	DefaultMaxInFlight = 1
)

type pipelineOptions struct {
	factory     *Factory
	assembler   *Assembler
	logger      *slog.Logger
	batchSize   int
	linger      time.Duration
	maxInFlight int
}

func defaultPipelineOptions() *pipelineOptions {
	return &pipelineOptions{
		logger:      slog.Default(),
		batchSize:   DefaultBatchSize,
		linger:      DefaultLinger,
		maxInFlight: DefaultMaxInFlight,
	}
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*pipelineOptions)

// WithFactory replaces the default notification factory.
func WithFactory(f *Factory) PipelineOption {
	return func(o *pipelineOptions) {
		if f != nil {
			o.factory = f
		}
	}
}

// WithAssembler replaces the default payload assembler.
func WithAssembler(a *Assembler) PipelineOption {
	return func(o *pipelineOptions) {
		if a != nil {
			o.assembler = a
		}
	}
}

// WithBatchSize sets how many events close a batch immediately.
func WithBatchSize(n int) PipelineOption {
	return func(o *pipelineOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithLinger sets how long the first event of a batch waits for company.
func WithLinger(d time.Duration) PipelineOption {
	return func(o *pipelineOptions) {
		if d > 0 {
			o.linger = d
		}
	}
}

// WithMaxInFlight bounds how many batches fan out concurrently.
func WithMaxInFlight(n int) PipelineOption {
	return func(o *pipelineOptions) {
		if n > 0 {
			o.maxInFlight = n
		}
	}
}

func WithPipelineLogger(l *slog.Logger) PipelineOption {
	return func(o *pipelineOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithSpender enables abuse control: every emission spends one token of
// the key "push:<type>:<recipient>".
func WithSpender(s ratelimit.Spender) HubOption {
	return func(h *Hub) {
		h.spender = s
	}
}

func WithHubLogger(l *slog.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithHubClock overrides time.Now for event timestamps.
func WithHubClock(now func() time.Time) HubOption {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}
