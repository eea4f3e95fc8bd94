package main

import (
	"context"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rogertalk/roger-api-sub001/pkg/eventhub"
	"github.com/rogertalk/roger-api-sub001/pkg/httpserver"
	"github.com/rogertalk/roger-api-sub001/pkg/logger"
	"github.com/rogertalk/roger-api-sub001/pkg/notifications"
	"github.com/rogertalk/roger-api-sub001/pkg/pg"
	"github.com/rogertalk/roger-api-sub001/pkg/push"
	"github.com/rogertalk/roger-api-sub001/pkg/ratelimit"
	"github.com/rogertalk/roger-api-sub001/pkg/redis"
)

// services is everything the router needs plus what shutdown must drain.
// Drains are listed in start order; the server runs them in reverse.
type services struct {
	hub         *eventhub.Hub
	manager     *notifications.Manager
	limiter     *ratelimit.Limiter
	checks      []httpserver.Check
	drains      []httpserver.Option
	pushDevMode bool
}

func (s *services) drain(name string, fn func(context.Context) error) {
	s.drains = append(s.drains, httpserver.WithDrain(name, fn))
}

func wire(ctx context.Context, cfg appConfig, log *slog.Logger) (*services, error) {
	svc := &services{}

	store, dir, err := openStorage(ctx, cfg.Postgres, svc, log)
	if err != nil {
		return nil, err
	}

	var client goredis.UniversalClient
	if cfg.Redis.Enabled() {
		rc, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			svc.close(ctx)
			return nil, err
		}
		client = rc
		svc.checks = append(svc.checks, httpserver.Check{Name: "redis", Probe: redis.Healthcheck(rc)})
		svc.drain("redis", func(context.Context) error { return rc.Close() })
	}

	limiter, closeStore, err := ratelimit.NewFromConfig(cfg.RateLimit, client, ratelimit.WithLogger(log))
	if err != nil {
		svc.close(ctx)
		return nil, err
	}
	svc.limiter = limiter
	svc.drain("ratelimit", func(context.Context) error { return closeStore() })

	pushClient := push.NewFromConfig(cfg.Push, push.WithLogger(log))
	svc.pushDevMode = pushClient.DevMode()
	svc.drain("push", pushClient.Close)

	repo := notifications.NewRepository(store, dir, notifications.WithLogger(log))
	pipeline := eventhub.NewPipelineFromConfig(cfg.Hub, repo, pushClient, log)
	svc.drain("pipeline", pipeline.Close)

	hub, err := eventhub.NewHub(pipeline,
		eventhub.WithSpender(limiter),
		eventhub.WithHubLogger(log),
	)
	if err != nil {
		svc.close(ctx)
		return nil, err
	}
	svc.hub = hub
	svc.manager = notifications.NewManager(store, notifications.WithManagerLogger(log))
	return svc, nil
}

// openStorage returns the PostgreSQL store and directory when configured,
// and the in-memory pair otherwise.
func openStorage(ctx context.Context, cfg pg.Config, svc *services, log *slog.Logger) (notifications.Store, notifications.Directory, error) {
	if !cfg.Enabled() {
		log.LogAttrs(ctx, slog.LevelWarn, "PG_CONN_URL not set, notifications are kept in memory",
			logger.Component("storage"),
		)
		return notifications.NewMemoryStore(), notifications.NewMemoryDirectory(), nil
	}

	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AutoMigrate {
		if err := pg.Migrate(ctx, pool, cfg, notifications.Migrations, notifications.MigrationsDir, log); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	svc.checks = append(svc.checks, httpserver.Check{Name: "postgres", Probe: pg.Healthcheck(pool)})
	svc.drain("postgres", func(context.Context) error { pool.Close(); return nil })
	return notifications.NewPostgresStore(pool), notifications.NewPostgresDirectory(pool), nil
}

// close releases what wire opened when a later step fails. The server never
// started, so the drain options are applied to a throwaway server.
func (s *services) close(ctx context.Context) {
	_ = httpserver.New(s.drains...).Shutdown(ctx)
}
