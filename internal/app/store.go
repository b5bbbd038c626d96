package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guttosm/k4ledger/config"
	"github.com/guttosm/k4ledger/internal/logger"
	"github.com/guttosm/k4ledger/internal/storage"
)

// NewStore opens the snapshot store selected by STORE_DRIVER and returns it
// with a function releasing its resources.
//
// Drivers:
//   - file: JSON files under INPUT_DIR and OUTPUT_DIR.
//   - sqlite: the database at SQLITE_PATH, migrated on open.
//   - postgres: the configured server; run `k4ledger migrate` first.
func NewStore(ctx context.Context, cfg config.Config) (storage.SnapshotStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreFile, "":
		return storage.NewFileStore(cfg.Ledger.InputDir, cfg.Ledger.OutputDir), func() {}, nil

	case config.StoreSQLite:
		db, err := InitSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := storage.Migrate(ctx, db, storage.DialectSQLite); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.L().Info().Str("path", cfg.Store.SQLitePath).Msg("sqlite store ready")
		return storage.NewSQLRepository(db, storage.DialectSQLite), func() { _ = db.Close() }, nil

	case config.StorePostgres:
		db, err := postgresOpener(cfg)
		if err != nil {
			return nil, nil, err
		}
		logger.L().Info().Str("host", cfg.Postgres.Host).Str("db", cfg.Postgres.DBName).Msg("postgres store ready")
		return storage.NewSQLRepository(db, storage.DialectPostgres), func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// storeOpener is an indirection used by InitializeApp; overridden in tests.
var storeOpener = NewStore

// OpenSQL opens the SQL database selected by STORE_DRIVER and returns it
// with its repository dialect. The file driver has no database.
func OpenSQL(cfg config.Config) (*sql.DB, string, error) {
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		db, err := InitSQLite(cfg.Store.SQLitePath)
		return db, storage.DialectSQLite, err
	case config.StorePostgres:
		db, err := postgresOpener(cfg)
		return db, storage.DialectPostgres, err
	default:
		return nil, "", fmt.Errorf("store driver %q has no database", cfg.Store.Driver)
	}
}
