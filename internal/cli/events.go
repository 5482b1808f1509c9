package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seamlane/journeyd/internal/domain"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect session event logs",
	}

	cmd.AddCommand(newEventsTailCmd())
	return cmd
}

func newEventsTailCmd() *cobra.Command {
	var (
		workspaceID string
		fromOffset  int64
		limit       int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "tail <session-id>",
		Short: "Print a session's events in offset order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			events, err := a.coord.ReadEvents(cmd.Context(), args[0], workspaceID, fromOffset, limit)
			if err != nil {
				return err
			}

			for _, ev := range events {
				if asJSON {
					data, err := json.Marshal(ev)
					if err != nil {
						return err
					}
					fmt.Println(string(data))
					continue
				}
				fmt.Printf("%6d  %-19s %s\n", ev.Offset, ev.Type, eventSummary(&ev))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace id")
	cmd.Flags().Int64Var(&fromOffset, "from", 0, "first offset to read")
	cmd.Flags().IntVar(&limit, "limit", 50, "max events to print (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per line")
	cmd.MarkFlagRequired("workspace")
	return cmd
}

// eventSummary renders a one-line description of an event's payload.
func eventSummary(ev *domain.Event) string {
	switch c := ev.Content.(type) {
	case domain.CustomerMessage:
		return c.Text
	case domain.AgentMessage:
		return c.Text
	case domain.ToolCall:
		return fmt.Sprintf("tool=%s call=%s", c.ToolID, c.CallID)
	case domain.ToolResult:
		return fmt.Sprintf("call=%s status=%s", c.CallID, c.Status)
	case domain.StatusUpdate:
		if c.Reason != "" {
			return c.Status + ": " + c.Reason
		}
		return c.Status
	case domain.TransitionRecord:
		return fmt.Sprintf("%s -> %s (%s)", c.FromStateID, c.ToStateID, c.Condition)
	case domain.VariableUpdate:
		return fmt.Sprintf("%s/%s (%s)", c.Scope, c.Key, c.Type)
	}
	return ""
}
