package hosttools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/devrecall/devrecall/internal/flush"
	"github.com/devrecall/devrecall/internal/knowledge"
	"github.com/devrecall/devrecall/internal/observe"
)

// RecallStatsTool handles the recall_stats MCP tool: a snapshot of what the
// add-on currently holds.
type RecallStatsTool struct {
	store       *knowledge.Store
	buffer      *observe.Buffer
	coordinator *flush.Coordinator
}

// NewRecallStatsTool creates the tool.
func NewRecallStatsTool(store *knowledge.Store, buffer *observe.Buffer, coordinator *flush.Coordinator) *RecallStatsTool {
	return &RecallStatsTool{store: store, buffer: buffer, coordinator: coordinator}
}

// Definition returns the MCP tool definition for recall_stats.
func (t *RecallStatsTool) Definition() mcp.Tool {
	return mcp.NewTool("recall_stats",
		mcp.WithDescription(
			"Report stored knowledge counts, recorded mistakes, buffered observations "+
				"per session, and the flush coordinator's state.",
		),
	)
}

// Handle processes a recall_stats call.
func (t *RecallStatsTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "knowledge entries: %d\n", t.store.Len())
	fmt.Fprintf(&b, "recorded mistakes: %d\n", len(t.store.Mistakes()))
	fmt.Fprintf(&b, "flush state: %s\n", t.coordinator.State())
	fmt.Fprintf(&b, "buffered observations: %d\n", t.buffer.TotalLen())
	for _, id := range t.buffer.SessionIDs() {
		fmt.Fprintf(&b, "  %s: %d\n", id, t.buffer.Len(id))
	}
	return mcp.NewToolResultText(b.String()), nil
}
