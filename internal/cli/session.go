package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seamlane/journeyd/internal/domain"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and manage sessions",
	}

	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionShowCmd())
	cmd.AddCommand(newSessionEndCmd())
	return cmd
}

func newSessionListCmd() *cobra.Command {
	var workspaceID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions in a workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			sessions, err := a.sessions.List(cmd.Context(), workspaceID)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("(no sessions)")
				return nil
			}

			for _, s := range sessions {
				flag := ""
				if s.NeedsAttention {
					flag = " !attention"
				}
				fmt.Printf("  %s  %-10s events=%d messages=%d%s\n",
					s.ID, s.Status, s.EventCount, s.MessageCount, flag)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace id")
	cmd.MarkFlagRequired("workspace")
	return cmd
}

func newSessionShowCmd() *cobra.Command {
	var workspaceID string

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			s, err := a.sessions.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if workspaceID != "" && s.WorkspaceID != workspaceID {
				return &domain.AccessDeniedError{WorkspaceID: workspaceID, Entity: "session", EntityID: s.ID}
			}

			fmt.Printf("Session:   %s\n", s.ID)
			fmt.Printf("Workspace: %s\n", s.WorkspaceID)
			fmt.Printf("Agent:     %s\n", s.AgentID)
			if s.CustomerID != "" {
				fmt.Printf("Customer:  %s\n", s.CustomerID)
			}
			fmt.Printf("Status:    %s\n", s.Status)
			if s.InJourney() {
				fmt.Printf("Journey:   %s (state %s)\n", *s.CurrentJourneyID, *s.CurrentStateID)
				fmt.Printf("Attempts:  %d\n", s.DecisionAttempts)
			}
			fmt.Printf("Events:    %d (%d messages, %d tokens)\n", s.EventCount, s.MessageCount, s.TokensUsed)
			if s.NeedsAttention {
				fmt.Println("Attention: manual intervention required")
			}
			if s.EndedAt != nil {
				fmt.Printf("Ended:     %s\n", s.EndedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace id")
	return cmd
}

func newSessionEndCmd() *cobra.Command {
	var (
		workspaceID string
		abandoned   bool
	)

	cmd := &cobra.Command{
		Use:   "end <session-id>",
		Short: "End an active session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			reason := domain.SessionCompleted
			if abandoned {
				reason = domain.SessionAbandoned
			}
			if err := a.coord.EndSession(cmd.Context(), args[0], workspaceID, reason); err != nil {
				return err
			}
			fmt.Printf("Session %s ended (%s)\n", args[0], reason)
			return nil
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace id")
	cmd.Flags().BoolVar(&abandoned, "abandoned", false, "end as abandoned instead of completed")
	cmd.MarkFlagRequired("workspace")
	return cmd
}
