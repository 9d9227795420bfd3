package hosttools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/devrecall/devrecall/internal/knowledge"
)

// RecallSaveTool handles the recall_save MCP tool: an explicit save through
// the dedup engine, with force as the escape hatch for skipped ambiguity.
type RecallSaveTool struct {
	store *knowledge.Store
}

// NewRecallSaveTool creates the tool.
func NewRecallSaveTool(store *knowledge.Store) *RecallSaveTool {
	return &RecallSaveTool{store: store}
}

// Definition returns the MCP tool definition for recall_save.
func (t *RecallSaveTool) Definition() mcp.Tool {
	return mcp.NewTool("recall_save",
		mcp.WithDescription(
			"Save a knowledge entry explicitly. The entry runs through deduplication: "+
				"it may be merged into a similar existing entry, or skipped when several "+
				"similar entries exist. Pass force=true to save regardless.",
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short, searchable title (at most 60 characters kept)"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The knowledge worth keeping: what, why, where"),
		),
		mcp.WithString("type",
			mcp.Description("One of: decision, pattern, bugfix, lesson, feature, note (default note)"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags (e.g. 'auth,jwt,middleware')"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Save unconditionally, bypassing deduplication"),
		),
	)
}

// Handle processes a recall_save call.
func (t *RecallSaveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	content := req.GetString("content", "")
	if title == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}
	if content == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	cand := knowledge.Candidate{
		Type:    req.GetString("type", "note"),
		Title:   title,
		Content: content,
		Tags:    splitTags(req.GetString("tags", "")),
	}

	res := t.store.AddEntry(ctx, cand, req.GetBool("force", false))
	switch res.Action {
	case knowledge.ActionCreated:
		return mcp.NewToolResultText(fmt.Sprintf("Saved %q (%s)\nID: %s",
			res.Entry.Title, res.Entry.Type, res.Entry.ID)), nil

	case knowledge.ActionMerged:
		return mcp.NewToolResultText(fmt.Sprintf("Merged into existing entry %q\nID: %s",
			res.Entry.Title, res.Entry.ID)), nil

	default:
		var b strings.Builder
		fmt.Fprintf(&b, "Skipped: %d similar entries already exist:\n", len(res.Similar))
		for _, e := range res.Similar {
			fmt.Fprintf(&b, "- %q (%s)\n", e.Title, e.ID)
		}
		b.WriteString("Call again with force=true to save anyway.")
		return mcp.NewToolResultText(b.String()), nil
	}
}

// splitTags parses a comma-separated tag string, dropping empties.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
