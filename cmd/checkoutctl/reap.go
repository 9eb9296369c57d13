package main

import (
	"database/sql"
	"fmt"
	"time"

	"storefront-be/internal/party"

	"github.com/spf13/cobra"
)

func newReapGuestsCommand() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "reap-guests",
		Short: "Delete guest parties that never completed an order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return withDB(func(database *sql.DB) error {
				n, err := party.NewService(party.NewRepository(database)).ReapGuests(cmd.Context(), olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d guest parties\n", n)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "minimum age of guest parties to delete")
	return cmd
}
