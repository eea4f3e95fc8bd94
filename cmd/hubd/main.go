// Command hubd runs the notification and event hub behind an internal HTTP
// API. Without PG_CONN_URL it keeps notifications in memory; without
// REDIS_URL rate-limit buckets are local to the process.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/rogertalk/roger-api-sub001/pkg/config"
	"github.com/rogertalk/roger-api-sub001/pkg/environment"
	"github.com/rogertalk/roger-api-sub001/pkg/eventhub"
	"github.com/rogertalk/roger-api-sub001/pkg/httpserver"
	"github.com/rogertalk/roger-api-sub001/pkg/logger"
	"github.com/rogertalk/roger-api-sub001/pkg/pg"
	"github.com/rogertalk/roger-api-sub001/pkg/push"
	"github.com/rogertalk/roger-api-sub001/pkg/ratelimit"
	"github.com/rogertalk/roger-api-sub001/pkg/redis"
)

type appConfig struct {
	Log       logger.Config
	HTTP      httpserver.Config
	Postgres  pg.Config
	Redis     redis.Config
	Push      push.Config
	Hub       eventhub.Config
	RateLimit ratelimit.Config
}

var errMissingSetting = errors.New("missing required setting")

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "hubd:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	env := environment.Parse(cfg.Log.Env)
	if err := checkDeployment(env, cfg); err != nil {
		return err
	}
	log := logger.NewFromConfig(cfg.Log, logger.WithContextExtractors(httpserver.RequestIDExtractor()))
	logger.SetAsDefault(log)

	svc, err := wire(ctx, cfg, log)
	if err != nil {
		return err
	}

	srv := httpserver.NewFromConfig(cfg.HTTP, append(svc.drains, httpserver.WithLogger(log))...)
	router := newRouter(routerConfig{
		api:          newAPI(svc.hub, svc.manager, log),
		limiter:      svc.limiter,
		checks:       svc.checks,
		probeTimeout: cfg.HTTP.ProbeTimeout,
		log:          log,
	})

	log.LogAttrs(ctx, slog.LevelInfo, "hubd starting",
		slog.Bool("postgres", cfg.Postgres.Enabled()),
		slog.Bool("redis", cfg.Redis.Enabled()),
		slog.Bool("push_dev_mode", svc.pushDevMode),
	)
	return srv.Run(ctx, router)
}

// checkDeployment rejects development fallbacks outside development.
func checkDeployment(env environment.Environment, cfg appConfig) error {
	if !env.Deployed() {
		return nil
	}
	var missing []string
	if !cfg.Postgres.Enabled() {
		missing = append(missing, "PG_CONN_URL")
	}
	if cfg.Push.Endpoint == "" {
		missing = append(missing, "PUSH_SERVICE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w in %s: %s", errMissingSetting, env, strings.Join(missing, ", "))
	}
	return nil
}
