package hosttools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/devrecall/devrecall/internal/flush"
)

// SessionDeletedTool handles the session_deleted MCP tool: one final flush,
// then the session's buffer is gone.
type SessionDeletedTool struct {
	coordinator *flush.Coordinator
}

// NewSessionDeletedTool creates the tool.
func NewSessionDeletedTool(coordinator *flush.Coordinator) *SessionDeletedTool {
	return &SessionDeletedTool{coordinator: coordinator}
}

// Definition returns the MCP tool definition for session_deleted.
func (t *SessionDeletedTool) Definition() mcp.Tool {
	return mcp.NewTool("session_deleted",
		mcp.WithDescription(
			"Notify that a session was deleted. Its buffered observations are flushed "+
				"one last time and the buffer is removed.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Host session identifier"),
		),
	)
}

// Handle processes a session_deleted call.
func (t *SessionDeletedTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}

	results, err := t.coordinator.OnSessionDeleted(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError("flush failed: " + err.Error()), nil
	}
	return mcp.NewToolResultText(flush.Describe(results)), nil
}
