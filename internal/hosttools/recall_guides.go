package hosttools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/devrecall/devrecall/internal/knowledge"
	"github.com/devrecall/devrecall/internal/observe"
)

// maxActivityQueries bounds how many recently edited files widen a guide
// lookup beyond the explicit query.
const maxActivityQueries = 5

// RecallGuidesTool handles the recall_guides MCP tool: short-query lookup of
// stored entries relevant to what the session is about to work on, widened
// by the files currently being edited across all buffered sessions.
type RecallGuidesTool struct {
	store  *knowledge.Store
	buffer *observe.Buffer
}

// NewRecallGuidesTool creates the tool.
func NewRecallGuidesTool(store *knowledge.Store, buffer *observe.Buffer) *RecallGuidesTool {
	return &RecallGuidesTool{store: store, buffer: buffer}
}

// Definition returns the MCP tool definition for recall_guides.
func (t *RecallGuidesTool) Definition() mcp.Tool {
	return mcp.NewTool("recall_guides",
		mcp.WithDescription(
			"Look up stored knowledge relevant to a short query — a file path, a task "+
				"phrase, an identifier. Matching tolerates large length differences, so a "+
				"few words will find long stored entries. Entries relevant to files recently "+
				"edited in any session are included as well. Call before starting work on a topic.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("A few words describing what is being worked on"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries returned (default 5)"),
		),
	)
}

// Handle processes a recall_guides call.
func (t *RecallGuidesTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	limit := int(req.GetFloat("limit", 5))

	guides := t.store.Guides(query, limit)
	for _, path := range t.recentEdits(maxActivityQueries) {
		for _, g := range t.store.Guides(path, limit) {
			if !containsEntry(guides, g.ID) {
				guides = append(guides, g)
			}
		}
	}
	if limit > 0 && len(guides) > limit {
		guides = guides[:limit]
	}

	if len(guides) == 0 {
		return mcp.NewToolResultText("no relevant knowledge stored"), nil
	}
	return mcp.NewToolResultText(renderEntries(guides)), nil
}

// recentEdits returns the most recently edited file paths across every
// buffered session, deduplicated, newest first.
func (t *RecallGuidesTool) recentEdits(max int) []string {
	all := t.buffer.Aggregate()
	seen := make(map[string]struct{})
	var paths []string
	for i := len(all) - 1; i >= 0 && len(paths) < max; i-- {
		p := all[i].EditedFile
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	return paths
}

func containsEntry(entries []knowledge.MemoryEntry, id string) bool {
	for _, e := range entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// renderEntries formats entries for host consumption.
func renderEntries(entries []knowledge.MemoryEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d entries:\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "\n## %s [%s]\n%s\n", e.Title, e.Type, e.Content)
		if len(e.Tags) > 0 {
			fmt.Fprintf(&b, "tags: %s\n", strings.Join(e.Tags, ", "))
		}
	}
	return b.String()
}
