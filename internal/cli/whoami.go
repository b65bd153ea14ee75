package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newWhoamiCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.store.IsSessionPresent() {
				fmt.Println("Not signed in.")
				return nil
			}
			sess, ok := a.store.Current()
			if !ok {
				fmt.Println("Not signed in.")
				return nil
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"role":     sess.Role,
					"identity": sess.Identity,
				})
			}

			fmt.Printf("Signed in as %s (%s)\n", sess.Identifier(), sess.Role)
			if sess.IsAdmin() {
				fmt.Println("Sub-role: admin")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the session as JSON")
	return cmd
}
