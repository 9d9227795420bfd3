package hosttools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/devrecall/devrecall/internal/knowledge"
)

// RecallSearchTool handles the recall_search MCP tool: symmetric full-text
// search over stored entries.
type RecallSearchTool struct {
	store *knowledge.Store
}

// NewRecallSearchTool creates the tool.
func NewRecallSearchTool(store *knowledge.Store) *RecallSearchTool {
	return &RecallSearchTool{store: store}
}

// Definition returns the MCP tool definition for recall_search.
func (t *RecallSearchTool) Definition() mcp.Tool {
	return mcp.NewTool("recall_search",
		mcp.WithDescription(
			"Search stored knowledge entries by keyword similarity. Unlike recall_guides "+
				"this weighs both texts symmetrically — best for query text comparable in "+
				"length to entry titles and content.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries returned (default 10)"),
		),
	)
}

// Handle processes a recall_search call.
func (t *RecallSearchTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	limit := int(req.GetFloat("limit", 10))

	hits := t.store.Search(query, limit)
	if len(hits) == 0 {
		return mcp.NewToolResultText("no matching entries"), nil
	}
	return mcp.NewToolResultText(renderEntries(hits)), nil
}
