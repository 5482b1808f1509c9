package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/seamlane/journeyd/internal/domain"
	"github.com/seamlane/journeyd/internal/journey"
)

// ToolRunner is the external tool-execution collaborator. It receives
// scheduled tool_call payloads and produces tool_result payloads; the core
// never executes tools itself.
type ToolRunner interface {
	Run(ctx context.Context, call domain.ToolCall) (domain.ToolResult, error)
}

// maybeDispatchTool hands a freshly scheduled tool call to the runner on a
// separate goroutine. The caller still holds the session's token; execution
// must not, so a slow tool never blocks other activity on the session. The
// result re-enters through AppendEvent, which re-acquires the token, and is
// appended at whatever offset is next when it completes.
func (c *Coordinator) maybeDispatchTool(sess *domain.Session, res *journey.Result) {
	if res == nil || res.PendingTool == nil || c.runner == nil {
		return
	}

	call := *res.PendingTool
	timeout := c.cfg.ToolTimeout()
	if res.PendingToolConfig != nil && res.PendingToolConfig.Timeout() > 0 {
		timeout = res.PendingToolConfig.Timeout()
	}
	sessionID, workspaceID := sess.ID, sess.WorkspaceID

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		result, err := c.runner.Run(ctx, call)
		switch {
		case errors.Is(err, context.DeadlineExceeded) || (err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)):
			result = domain.ToolResult{
				CallID: call.CallID,
				Status: domain.ToolResultTimeout,
				Error:  fmt.Sprintf("tool %s exceeded %s execution timeout", call.ToolID, timeout),
			}
		case err != nil:
			result = domain.ToolResult{
				CallID: call.CallID,
				Status: domain.ToolResultError,
				Error:  err.Error(),
			}
		default:
			result.CallID = call.CallID
			if result.Status == "" {
				result.Status = domain.ToolResultSuccess
			}
		}

		if _, _, err := c.AppendEvent(context.Background(), sessionID, workspaceID, domain.EventToolResult, result); err != nil {
			c.log.Error().Err(err).Str("session", sessionID).Str("call", call.CallID).
				Msg("failed to append tool result")
		}
	}()
}
