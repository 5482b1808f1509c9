package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seamlane/journeyd/internal/domain"
)

func newSendCmd() *cobra.Command {
	var (
		workspaceID string
		agentID     string
		customerID  string
		sessionID   string
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Append a customer message to a session and print the journey step",
		Long:  "Appends a customer message. Without --session a new session is created for --agent first.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if sessionID == "" {
				if agentID == "" {
					return fmt.Errorf("either --session or --agent is required")
				}
				sess, err := a.coord.CreateSession(cmd.Context(), agentID, workspaceID, customerID, domain.ParticipantCustomer)
				if err != nil {
					return err
				}
				sessionID = sess.ID
				fmt.Printf("Session:    %s\n", sessionID)
			}

			ev, res, err := a.coord.AppendEvent(cmd.Context(), sessionID, workspaceID, domain.EventCustomerMessage,
				domain.CustomerMessage{Text: message, CustomerID: customerID})
			if err != nil {
				return err
			}

			fmt.Printf("Offset:     %d\n", ev.Offset)
			if res != nil && res.Transitioned {
				fmt.Printf("Transition: %s -> %s\n", res.FromStateID, res.ToStateID)
				if res.ToState != nil {
					fmt.Printf("State:      %s (%s)\n", res.ToState.Name, res.ToState.Type)
				}
				if res.Completed {
					fmt.Println("Journey:    completed")
				}
			}
			if res != nil && res.Escalated {
				fmt.Println("Attention:  manual intervention required")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace id")
	cmd.Flags().StringVar(&agentID, "agent", "", "agent id (to open a new session)")
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&sessionID, "session", "", "existing session id")
	cmd.MarkFlagRequired("workspace")
	return cmd
}
