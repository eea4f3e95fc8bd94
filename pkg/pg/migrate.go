package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/rogertalk/roger-api-sub001/pkg/logger"
)

// goose keeps its dialect, table name and base FS in package globals.
var migrateMu sync.Mutex

// Migrate applies the goose migrations found in dir of fsys and logs the
// resulting schema version. Migrations are embedded next to the store that
// owns the schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, fsys fs.FS, dir string, log *slog.Logger) error {
	if fsys == nil {
		return errors.Join(ErrFailedToApplyMigrations, ErrMigrationsNotProvided)
	}
	if log == nil {
		log = slog.Default()
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.LogAttrs(ctx, slog.LevelWarn, "closing migration connection", logger.Error(err))
		}
	}()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{log: log})
	goose.SetTableName(cfg.MigrationsTable)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	log.LogAttrs(ctx, slog.LevelInfo, "schema up to date",
		logger.Component("migrate"),
		slog.String("table", cfg.MigrationsTable),
		slog.Int64("version", version),
	)
	return nil
}

// gooseLogger routes goose output into slog.
type gooseLogger struct {
	log *slog.Logger
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.log.LogAttrs(context.Background(), slog.LevelError, strings.TrimSpace(fmt.Sprintf(format, v...)),
		logger.Component("migrate"))
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.log.LogAttrs(context.Background(), slog.LevelDebug, strings.TrimSpace(fmt.Sprintf(format, v...)),
		logger.Component("migrate"))
}
