package notifications

import "embed"

// MigrationsDir is the directory of Migrations holding goose files.
const MigrationsDir = "migrations"

// Migrations holds the PostgreSQL schema used by PostgresStore and
// PostgresDirectory.
//
//go:embed migrations/*.sql
var Migrations embed.FS
