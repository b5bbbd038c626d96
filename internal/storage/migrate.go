package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"

	goose "github.com/pressly/goose/v3"

	"github.com/guttosm/k4ledger/db/migrations"
	"github.com/guttosm/k4ledger/internal/logger"
)

// gooseLogger routes goose output through the application logger.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	logger.L().Info().Str("component", "goose").Msgf(strings.TrimSpace(format), v...)
}

func (gooseLogger) Fatalf(format string, v ...any) {
	logger.L().Error().Str("component", "goose").Msgf(strings.TrimSpace(format), v...)
}

// gooseDialect maps a repository dialect to the goose dialect name.
func gooseDialect(dialect string) (string, error) {
	switch dialect {
	case DialectPostgres:
		return "postgres", nil
	case DialectSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", dialect)
	}
}

// Migrate applies the embedded migrations up to the latest version.
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	return MigrateFS(ctx, db, dialect, migrations.FS)
}

// MigrateFS applies the goose migrations found at the root of fsys.
func MigrateFS(ctx context.Context, db *sql.DB, dialect string, fsys fs.FS) error {
	d, err := gooseDialect(dialect)
	if err != nil {
		return err
	}
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{})

	if err := goose.SetDialect(d); err != nil {
		return fmt.Errorf("dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
