package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seamlane/journeyd/internal/config"
	"github.com/seamlane/journeyd/internal/store"
	"github.com/seamlane/journeyd/internal/tenant"
)

func newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Provision workspaces, agents and journeys from the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			issues := config.Validate(cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
				return fmt.Errorf("config has %d validation issue(s)", len(issues))
			}

			db, err := store.Open(paths.DatabasePath(cfg), log)
			if err != nil {
				return err
			}
			defer db.Close()

			seeder := store.NewSeeder(
				store.NewAgentStore(db),
				store.NewToolStore(db),
				store.NewJourneyStore(db),
				tenant.NewGuard(log),
				log,
			)
			if err := seeder.Apply(cmd.Context(), cfg.Seed); err != nil {
				return err
			}

			fmt.Printf("Applied %d workspace(s)\n", len(cfg.Seed.Workspaces))
			return nil
		},
	}
}
