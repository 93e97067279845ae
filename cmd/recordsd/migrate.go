package main

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/R3E-Network/records_service/internal/platform/migrations"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the postgres schema",
		Long:      "Runs the embedded migrations against --dsn, or database.dsn from the configuration when the flag is empty.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(migrations.Up), string(migrations.Down)},
		RunE:      runMigrate,
	}
	cmd.Flags().String("dsn", "", "postgres connection string")
	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dir := migrations.Up
	if len(args) == 1 {
		dir = migrations.Direction(args[0])
	}

	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dsn = cfg.Database.DSN
	}
	if dsn == "" {
		return fmt.Errorf("no database dsn: pass --dsn or set database.dsn")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := migrations.Migrate(db, dir); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrations %s: ok\n", dir)
	return nil
}
