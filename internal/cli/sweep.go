package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seamlane/journeyd/internal/session"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one retention sweep over ended sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			sweeper := session.NewSweeper(a.cfg.Session, a.sessions, a.events, a.vars, log)
			stats, err := sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Swept %d session(s): %d variable(s) deleted, %d event(s) purged\n",
				stats.SessionsVisited, stats.VariablesDeleted, stats.EventsPurged)
			return nil
		},
	}
}
