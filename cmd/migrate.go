/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/samajportal/apiserver/config"
	"github.com/samajportal/apiserver/internal/db"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(func(m *migrate.Migrate) error { return m.Up() })
	},
}

var migrateDownSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateDownSteps < 1 {
			return errors.New("--steps must be at least 1")
		}
		return runMigration(func(m *migrate.Migrate) error { return m.Steps(-migrateDownSteps) })
	},
}

func runMigration(step func(*migrate.Migrate) error) error {
	cfg := config.LoadConfig()

	migrator, err := migrate.New(db.MigrationsURL, db.DSN(cfg.Database))
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := step(migrator); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "number of migrations to roll back")
}
