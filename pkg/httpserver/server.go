package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/rogertalk/roger-api-sub001/pkg/logger"
)

type drain struct {
	name string
	fn   func(context.Context) error
}

type config struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	startHooks      []func(*slog.Logger)
	drains          []drain
}

func defaultConfig() *config {
	return &config{
		addr:            ":8080",
		shutdownTimeout: 15 * time.Second,
		logger:          slog.New(slog.DiscardHandler),
	}
}

// Server wraps http.Server with signal handling, graceful shutdown and
// ordered draining of background components.
type Server struct {
	cfg     *config
	mu      sync.Mutex
	srv     *http.Server
	once    sync.Once
	downErr error
}

// New returns a configured Server.
func New(opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Server{cfg: cfg}
}

// Run serves handler until ctx is done, SIGINT/SIGTERM arrives or the
// listener fails, then shuts down. Listen failures are wrapped with ErrStart,
// shutdown failures with ErrShutdown.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, errors.New("server already running"))
	}
	srv := &http.Server{
		Addr:         s.cfg.addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.readTimeout,
		WriteTimeout: s.cfg.writeTimeout,
		IdleTimeout:  s.cfg.idleTimeout,
		ErrorLog:     slog.NewLogLogger(s.cfg.logger.Handler(), slog.LevelWarn),
	}
	s.srv = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	for _, h := range s.cfg.startHooks {
		h(s.cfg.logger)
	}
	s.cfg.logger.LogAttrs(ctx, slog.LevelInfo, "http server started",
		logger.Component("httpserver"),
		slog.String("addr", srv.Addr),
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	var listenErr error
	select {
	case <-ctx.Done():
	case <-stop:
	case listenErr = <-errCh:
		if listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			_ = s.Shutdown(context.WithoutCancel(ctx))
			return errors.Join(ErrStart, listenErr)
		}
	}

	downErr := s.Shutdown(context.WithoutCancel(ctx))
	if listenErr == nil {
		listenErr = <-errCh
	}
	if listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
		return errors.Join(ErrStart, listenErr)
	}
	return downErr
}

// Shutdown stops accepting requests, waits for in-flight ones and then runs
// the drain funcs, all within the shutdown timeout. Repeated calls return the
// result of the first one.
func (s *Server) Shutdown(ctx context.Context) error {
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.shutdownTimeout)
		defer cancel()

		var errs []error
		s.mu.Lock()
		srv := s.srv
		s.mu.Unlock()
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs = append(errs, err)
			}
		}

		for _, d := range slices.Backward(s.cfg.drains) {
			start := time.Now()
			if err := d.fn(ctx); err != nil {
				s.cfg.logger.LogAttrs(ctx, slog.LevelError, "drain failed",
					logger.Component(d.name),
					logger.Error(err),
				)
				errs = append(errs, err)
				continue
			}
			s.cfg.logger.LogAttrs(ctx, slog.LevelDebug, "drained",
				logger.Component(d.name),
				logger.Duration(time.Since(start)),
			)
		}

		if len(errs) > 0 {
			s.downErr = errors.Join(append([]error{ErrShutdown}, errs...)...)
		}
	})
	return s.downErr
}
