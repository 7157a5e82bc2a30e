package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rdflg/rdflg/internal/infra/db/migrations"
	"github.com/rdflg/rdflg/internal/infra/db/sqlite"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply (or roll back) the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		driver, dsn := cfg.Database.Driver, cfg.DSN()

		var err error
		switch {
		case migrateDown:
			err = migrations.Down(driver, dsn)
		case driver == migrations.SQLite:
			// Open creates the file and its directory before migrating.
			var store *sqlite.Store
			if store, err = sqlite.Open(dsn); err == nil {
				err = store.Close()
			}
		default:
			err = migrations.Up(driver, dsn)
		}
		if err != nil {
			return fmt.Errorf("migrate %s: %w", driver, err)
		}

		logger.Info("migration complete", zap.String("driver", driver), zap.Bool("down", migrateDown))
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll every migration back")
}
