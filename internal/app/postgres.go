package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/guttosm/k4ledger/config"

	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
)

// sqlOpener is an indirection for unit testing; defaults to sql.Open
var sqlOpener = sql.Open

// Snapshot traffic is a handful of statements per run; a small pool is enough.
const (
	postgresMaxOpenConns = 5
	postgresMaxIdleConns = 2
	postgresConnMaxIdle  = 5 * time.Minute
	postgresPingTimeout  = 5 * time.Second
)

// InitPostgres opens the snapshot database described by cfg.Postgres and
// checks that it answers before handing it to the store.
//
// The handle is closed again when the ping fails, so callers only own a
// *sql.DB on success.
func InitPostgres(cfg config.Config) (*sql.DB, error) {
	db, err := sqlOpener("postgres", config.PostgresDSN(cfg.Postgres))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(postgresMaxOpenConns)
	db.SetMaxIdleConns(postgresMaxIdleConns)
	db.SetConnMaxIdleTime(postgresConnMaxIdle)

	ctx, cancel := context.WithTimeout(context.Background(), postgresPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres %s:%d/%s: %w",
			cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.DBName, err)
	}

	return db, nil
}

// postgresOpener is an indirection used by NewStore; overridden in tests to avoid real connections.
var postgresOpener = InitPostgres
