package commands

import (
	"github.com/spf13/cobra"

	"github.com/ailabben/dashboard-api/internal/app"
	"github.com/ailabben/dashboard-api/internal/config"
	"github.com/ailabben/dashboard-api/internal/logger"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docctl",
		Short: "Maintenance commands for secure document delivery",
		Long: `docctl works against the same database, storage and broker as the API
server and reads the same environment (and .env file).

Use "docctl [command] --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		lvl, _ := cmd.Flags().GetString("log-level")
		logger.Setup(lvl, true)
	}

	root.AddCommand(newCleanupCmd())
	root.AddCommand(newIssueCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newHashKeyCmd())
	root.AddCommand(newConsumeAuditCmd())
	return root
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// openStores loads configuration and connects to the configured database.
func openStores() (config.Config, *app.Stores, error) {
	cfg := config.Load()
	st, err := app.OpenStores(cfg)
	return cfg, st, err
}
