package pg

import "time"

// Config describes the PostgreSQL pool and its migrations.
type Config struct {
	ConnectionString  string        `env:"PG_CONN_URL"`                            // ConnectionString is the connection string to the database. Empty disables PostgreSQL.
	MaxOpenConns      int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`      // MaxOpenConns is the maximum number of open connections to the database.
	MaxIdleConns      int32         `env:"PG_MAX_IDLE_CONNS" envDefault:"2"`       // MaxIdleConns is the minimum number of connections kept open.
	HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`  // HealthCheckPeriod is the period between health checks.
	MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"` // MaxConnIdleTime is the maximum amount of time a connection may be idle to be reused.
	MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`  // MaxConnLifetime is the maximum amount of time a connection may be reused.

	RetryAttempts int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`  // RetryAttempts is the number of attempts to connect to the database.
	RetryInterval time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"2s"` // RetryInterval is the base wait between attempts, multiplied by the attempt number.

	MigrationsTable string `env:"PG_MIGRATIONS_TABLE" envDefault:"hub_schema_migrations"` // MigrationsTable stores the applied migration version.
	AutoMigrate     bool   `env:"PG_AUTO_MIGRATE" envDefault:"true"`                      // AutoMigrate applies embedded migrations on startup.
}

// Enabled reports whether a connection string is configured.
func (c Config) Enabled() bool { return c.ConnectionString != "" }
