package cli

import (
	"github.com/spf13/cobra"

	"github.com/seamlane/journeyd/internal/config"
	"github.com/seamlane/journeyd/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journeyd",
		Short: "journeyd — conversation session and journey store",
		Long:  "journeyd persists agent conversation sessions as append-only event logs and drives their guided journeys.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.journeyd/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newApplyCmd())
	cmd.AddCommand(newAgentCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newEventsCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newSweepCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
