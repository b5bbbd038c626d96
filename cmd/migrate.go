package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/guttosm/k4ledger/config"
	"github.com/guttosm/k4ledger/internal/app"
	"github.com/guttosm/k4ledger/internal/logger"
	"github.com/guttosm/k4ledger/internal/storage"
)

func newMigrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQL migrations to the configured store",
		Long:  "Applies the goose migrations to the database selected by STORE_DRIVER (postgres or sqlite).\nWithout --dir the migrations built into the binary are used.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, dialect, err := app.OpenSQL(config.AppConfig)
			if err != nil {
				return err
			}
			defer db.Close()

			if dir != "" {
				err = storage.MigrateFS(cmd.Context(), db, dialect, os.DirFS(dir))
			} else {
				err = storage.Migrate(cmd.Context(), db, dialect)
			}
			if err != nil {
				return err
			}
			logger.L().Info().Str("dialect", dialect).Msg("migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory with migration files (e.g. db/migrations)")
	return cmd
}
