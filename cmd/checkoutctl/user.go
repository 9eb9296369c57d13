package main

import (
	"database/sql"
	"fmt"

	"storefront-be/internal/user"

	"github.com/spf13/cobra"
)

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage storefront accounts",
	}

	var name, password string
	create := &cobra.Command{
		Use:   "create <email>",
		Short: "Register an account with its own party",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(database *sql.DB) error {
				u, err := user.NewService(user.NewRepository(database)).Register(cmd.Context(), name, args[0], password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %d (party %d) for %s\n", u.ID, u.PartyID, u.Email)
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name, defaults to the email")
	create.Flags().StringVar(&password, "password", "", "initial password (min 8 characters)")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}
