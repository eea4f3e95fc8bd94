// Package pg bootstraps the PostgreSQL layer of the hub on top of pgx/v5.
//
// Connect opens a *pgxpool.Pool from Config, retrying while the database
// comes up. Migrate runs goose migrations from an fs.FS so schema files can
// be embedded next to the store that owns them:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	err = pg.Migrate(ctx, pool, cfg, notifications.Migrations, notifications.MigrationsDir, log)
//
// Healthcheck adapts a pool to a readiness probe, and the Is*Error helpers
// classify driver errors without leaking pgx types to callers.
package pg
