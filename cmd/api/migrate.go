package main

import (
	pgStorage "balance-ledger/internal/adapter/storage/postgres"

	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the PostgreSQL schema",
	}
	cmd.AddCommand(
		newMigrateDirectionCommand(pgStorage.Up, "Apply all pending migrations"),
		newMigrateDirectionCommand(pgStorage.Down, "Roll back every migration"),
	)
	return cmd
}

func newMigrateDirectionCommand(dir pgStorage.Direction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(dir),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			return pgStorage.Migrate(cfg.Database.DSN(), cfg.Database.DBName, dir, log)
		},
	}
}
