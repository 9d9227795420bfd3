// Package hosttools exposes the observation and recall surface to the host
// runtime as MCP tools. Each tool is one file with a Definition/Handle pair;
// the server package wires them together.
package hosttools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/devrecall/devrecall/internal/flush"
	"github.com/devrecall/devrecall/internal/observe"
)

// ObserveEventTool handles the observe_event MCP tool: the host reports one
// completed tool execution and it lands in the session's buffer.
type ObserveEventTool struct {
	buffer      *observe.Buffer
	coordinator *flush.Coordinator
	enabled     bool
	ignore      map[string]struct{}
}

// NewObserveEventTool creates the tool. ignoreTools is the host's buffering
// denylist; enabled mirrors the autoObserve setting.
func NewObserveEventTool(buffer *observe.Buffer, coordinator *flush.Coordinator, enabled bool, ignoreTools []string) *ObserveEventTool {
	ignore := make(map[string]struct{}, len(ignoreTools))
	for _, name := range ignoreTools {
		ignore[strings.ToLower(name)] = struct{}{}
	}
	return &ObserveEventTool{
		buffer:      buffer,
		coordinator: coordinator,
		enabled:     enabled,
		ignore:      ignore,
	}
}

// Definition returns the MCP tool definition for observe_event.
func (t *ObserveEventTool) Definition() mcp.Tool {
	return mcp.NewTool("observe_event",
		mcp.WithDescription(
			"Record one completed tool execution into the session's observation buffer. "+
				"Call after every tool the session runs; buffered observations are distilled "+
				"into persistent knowledge when the session goes idle.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Host session identifier"),
		),
		mcp.WithString("tool",
			mcp.Required(),
			mcp.Description("Name of the tool that ran (e.g. Edit, Write, Bash, Grep)"),
		),
		mcp.WithObject("args",
			mcp.Description("The tool call's argument object as the host saw it"),
		),
		mcp.WithString("result",
			mcp.Description("The tool's result text (truncated when stored)"),
		),
		mcp.WithBoolean("is_error",
			mcp.Description("Whether the tool execution failed"),
		),
		mcp.WithString("delegation_context",
			mcp.Description("Optional task description the host attached when spawning the session"),
		),
	)
}

// Handle processes an observe_event call. Observation never fails the host's
// tool call: disabled or denylisted events are acknowledged and dropped.
func (t *ObserveEventTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	tool := req.GetString("tool", "")
	if tool == "" {
		return mcp.NewToolResultError("'tool' is required"), nil
	}

	if !t.enabled {
		return mcp.NewToolResultText("observation disabled"), nil
	}
	if _, skip := t.ignore[strings.ToLower(tool)]; skip {
		return mcp.NewToolResultText(fmt.Sprintf("tool %q is on the ignore list", tool)), nil
	}

	if dc := req.GetString("delegation_context", ""); dc != "" {
		t.buffer.SetDelegationContext(sessionID, dc)
	}

	rawArgs, _ := req.GetArguments()["args"].(map[string]any)
	args := observe.ValidateArgs(tool, rawArgs)
	obs := observe.NewObservation(tool, args, req.GetString("result", ""), req.GetBool("is_error", false))

	t.buffer.Push(sessionID, obs)
	t.coordinator.NoteObservation()

	return mcp.NewToolResultText(fmt.Sprintf("observed (%d buffered)", t.buffer.Len(sessionID))), nil
}
