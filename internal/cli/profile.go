package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the signed-in identity",
	}
	cmd.AddCommand(newProfileSetCmd())
	return cmd
}

func newProfileSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set key=value [key=value ...]",
		Short: "Update identity fields on the profile endpoint for the current role",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := make(map[string]any, len(args))
			for _, arg := range args {
				k, v, ok := strings.Cut(arg, "=")
				if !ok || k == "" {
					return fmt.Errorf("invalid field %q, expected key=value", arg)
				}
				fields[k] = v
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			merged, err := a.store.UpdateIdentity(ctx, fields)
			if err != nil {
				return err
			}

			fmt.Println("Profile updated:")
			for k := range fields {
				fmt.Printf("  %s = %v\n", k, merged[k])
			}
			return nil
		},
	}
}
