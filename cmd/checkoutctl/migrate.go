package main

import (
	"database/sql"
	"fmt"

	"storefront-be/migrations"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	actions := []struct {
		use, short string
		run        func(*sql.DB, string, ...goose.OptionsFunc) error
	}{
		{"up", "Apply all pending migrations", goose.Up},
		{"down", "Roll back the latest migration", goose.Down},
		{"status", "Print the state of every migration", goose.Status},
	}
	for _, a := range actions {
		cmd.AddCommand(&cobra.Command{
			Use:   a.use,
			Short: a.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(func(database *sql.DB) error {
					return migrate(database, a.use, a.run)
				})
			},
		})
	}
	return cmd
}

func migrate(database *sql.DB, action string, run func(*sql.DB, string, ...goose.OptionsFunc) error) error {
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := run(database, "."); err != nil {
		return fmt.Errorf("migrate %s: %w", action, err)
	}
	return nil
}
