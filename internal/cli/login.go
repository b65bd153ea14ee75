package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/me/shopgate/internal/resolver"
	"github.com/me/shopgate/pkg/model"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in against the storefront backend",
		Long: "Resolve which account namespace the credentials belong to and start a\n" +
			"session. When the email exists as both a customer and a merchant, you\n" +
			"are asked which account to sign into.",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(os.Stdin)

			if email == "" {
				fmt.Print("Email: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read email: %w", err)
				}
				email = strings.TrimSpace(line)
			}
			if password == "" {
				fmt.Print("Password: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimSpace(line)
			}
			if email == "" || password == "" {
				return fmt.Errorf("email and password are required")
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.resolver.Submit(ctx, email, password)
			if err != nil {
				return err
			}

			if out.State == resolver.StateAwaitingChoice {
				out, err = promptRoleChoice(reader, a, cmd)
				if err != nil {
					return err
				}
				if out.State == "" { // cancelled
					fmt.Println("Login cancelled.")
					return nil
				}
			}

			fmt.Printf("Signed in as %s (%s). Home: %s\n",
				out.Session.Identifier(), out.Session.Role, out.Home)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
	return cmd
}

// promptRoleChoice handles the suspended ambiguous-identity state: the
// email exists in both namespaces and exactly one login attempt will be
// made against whichever the user picks.
func promptRoleChoice(reader *bufio.Reader, a *app, cmd *cobra.Command) (resolver.Outcome, error) {
	fmt.Println("This email belongs to more than one account type.")
	for {
		fmt.Print("Sign in as [customer/merchant/cancel]: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return resolver.Outcome{}, fmt.Errorf("read choice: %w", err)
		}
		choice := strings.ToLower(strings.TrimSpace(line))

		if choice == "cancel" {
			a.resolver.Cancel(cmd.Context())
			return resolver.Outcome{}, nil
		}
		role, ok := model.ParseRole(choice)
		if !ok {
			fmt.Println("Please answer customer, merchant, or cancel.")
			continue
		}
		return a.resolver.Choose(cmd.Context(), role)
	}
}
