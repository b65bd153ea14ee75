package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the current session",
		Long:  "Clear the session from every persistence location. Safe to run while already logged out.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			a.store.Logout(ctx)
			fmt.Println("Logged out.")
			return nil
		},
	}
}
