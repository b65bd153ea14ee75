package cli

import (
	"log/slog"

	"github.com/me/shopgate/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the shopgate CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shopgate",
		Short: "shopgate is a storefront client with dual-namespace login",
		Long: "shopgate signs in against a storefront backend that keeps separate\n" +
			"customer and merchant accounts for the same email, keeps the resolved\n" +
			"session in sync across its persistence locations, and serves the\n" +
			"role-gated local UI.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(flagLogLevel, flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.shopgate/config.yaml)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newProfileCmd(),
		newServeCmd(),
	)

	return root
}
