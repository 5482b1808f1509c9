package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Inspect agents",
	}

	cmd.AddCommand(newAgentListCmd())
	return cmd
}

func newAgentListCmd() *cobra.Command {
	var workspaceID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live agents in a workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			agents, err := a.agents.List(cmd.Context(), workspaceID)
			if err != nil {
				return err
			}
			if len(agents) == 0 {
				fmt.Println("(no agents)")
				return nil
			}

			for _, agent := range agents {
				journeys, err := a.journeys.ListByAgent(cmd.Context(), agent.ID)
				if err != nil {
					return err
				}
				fmt.Printf("  %s  %-20s journeys=%d\n", agent.ID, agent.Name, len(journeys))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace id")
	cmd.MarkFlagRequired("workspace")
	return cmd
}
