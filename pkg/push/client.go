package push

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rogertalk/roger-api-sub001/pkg/async"
	"github.com/rogertalk/roger-api-sub001/pkg/batcher"
	"github.com/rogertalk/roger-api-sub001/pkg/logger"
)

// Client posts opaque JSON bodies to the push gateway. Bodies added within
// one linger window are joined with '\n' and sent in a single request.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	logger   *slog.Logger
	batcher  *batcher.Batcher[string, bool]
}

// New creates a push client.
func New(opts ...Option) *Client {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(cfg)
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	c := &Client{
		endpoint: cfg.endpoint,
		http:     httpClient,
		timeout:  cfg.timeout,
		logger:   cfg.logger,
	}
	c.batcher = batcher.New(c.send,
		batcher.WithSize(cfg.batchSize),
		batcher.WithLinger(cfg.linger),
		batcher.WithMaxInFlight(cfg.maxInFlight),
		batcher.WithName("push"),
		batcher.WithLogger(cfg.logger),
	)
	return c
}

// Post queues body for delivery. The future resolves to true when the
// gateway accepted the batch containing body. Deliveries are never retried.
func (c *Client) Post(body string) *async.Future[bool] {
	return c.batcher.Add(body)
}

// Close sends pending bodies and waits for in-flight requests.
func (c *Client) Close(ctx context.Context) error {
	return c.batcher.Close(ctx)
}

// DevMode reports whether bodies are logged instead of posted.
func (c *Client) DevMode() bool {
	return c.endpoint == ""
}

func (c *Client) send(ctx context.Context, bodies []string) ([]bool, error) {
	if c.DevMode() {
		c.logger.LogAttrs(ctx, slog.LevelDebug, "Not pushing notifications (dev)",
			logger.BatchSize(len(bodies)),
		)
		return fill(len(bodies), true), nil
	}

	ok := c.post(ctx, bodies)
	return fill(len(bodies), ok), nil
}

func (c *Client) post(ctx context.Context, bodies []string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload := strings.Join(bodies, "\n")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBufferString(payload))
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "Failed to build push request",
			logger.BatchSize(len(bodies)),
			logger.Error(err),
		)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "Push service request failed",
			logger.BatchSize(len(bodies)),
			logger.Duration(time.Since(start)),
			logger.Error(err),
		)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	// 64KB is plenty for an error message from the gateway.
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.LogAttrs(ctx, slog.LevelError, "Push service returned error status",
			logger.StatusCode(resp.StatusCode),
			logger.BatchSize(len(bodies)),
			logger.Duration(time.Since(start)),
			slog.String("response", sanitize(snippet)),
		)
		return false
	}
	return true
}

func fill(n int, v bool) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func sanitize(body []byte) string {
	s := strings.ReplaceAll(string(body), "\n", " ")
	if len(s) > 200 {
		s = fmt.Sprintf("%s...", s[:200])
	}
	return s
}
