package main

import (
	"database/sql"

	"storefront-be/internal/config"
	"storefront-be/internal/db"

	"github.com/spf13/cobra"
)

// openDB is swapped in tests.
var openDB = func() (*sql.DB, error) {
	return db.NewDatabase(config.LoadConfig())
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "checkoutctl",
		Short:        "Storefront checkout maintenance",
		SilenceUsage: true,
	}

	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newReapGuestsCommand())
	cmd.AddCommand(newUserCommand())
	return cmd
}

// withDB opens the database for the duration of fn.
func withDB(fn func(*sql.DB) error) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(database)
}
