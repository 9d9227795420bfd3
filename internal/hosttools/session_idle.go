package hosttools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/devrecall/devrecall/internal/flush"
)

// SessionIdleTool handles the session_idle MCP tool, the primary flush
// trigger.
type SessionIdleTool struct {
	coordinator *flush.Coordinator
}

// NewSessionIdleTool creates the tool.
func NewSessionIdleTool(coordinator *flush.Coordinator) *SessionIdleTool {
	return &SessionIdleTool{coordinator: coordinator}
}

// Definition returns the MCP tool definition for session_idle.
func (t *SessionIdleTool) Definition() mcp.Tool {
	return mcp.NewTool("session_idle",
		mcp.WithDescription(
			"Notify that a session has gone idle. Buffered observations are distilled "+
				"into knowledge entries and persisted. Safe to call repeatedly; a flush "+
				"already in flight makes this a no-op.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Host session identifier"),
		),
	)
}

// Handle processes a session_idle call.
func (t *SessionIdleTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}

	results, err := t.coordinator.OnSessionIdle(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError("flush failed: " + err.Error()), nil
	}
	return mcp.NewToolResultText(flush.Describe(results)), nil
}
