// Package observe holds the per-session record of tool activity: the
// Observation model and the bounded session buffers the flush coordinator
// drains.
package observe

import (
	"strings"
	"time"
)

// maxResultLength bounds the stored result text per observation so a single
// verbose tool call cannot dominate the buffer.
const maxResultLength = 2000

// ArgsKind tags the validated shape of a tool invocation's arguments.
type ArgsKind string

const (
	ArgsFileEdit     ArgsKind = "file_edit"
	ArgsFileWrite    ArgsKind = "file_write"
	ArgsShell        ArgsKind = "shell"
	ArgsSearch       ArgsKind = "search"
	ArgsUnstructured ArgsKind = "unstructured"
)

// ToolArgs is the tagged union produced by validating the host runtime's
// loosely-typed argument bag at the event boundary. Only the fields for the
// tagged kind are populated; Raw keeps the original map for the
// unstructured variant.
type ToolArgs struct {
	Kind     ArgsKind       `json:"kind"`
	FilePath string         `json:"file_path,omitempty"`
	OldText  string         `json:"old_text,omitempty"`
	NewText  string         `json:"new_text,omitempty"`
	Command  string         `json:"command,omitempty"`
	Query    string         `json:"query,omitempty"`
	Raw      map[string]any `json:"raw,omitempty"`
}

// Observation is one recorded tool invocation. Immutable once created.
type Observation struct {
	Timestamp   time.Time `json:"timestamp"`
	Tool        string    `json:"tool"`
	Args        ToolArgs  `json:"args"`
	Result      string    `json:"result,omitempty"`
	IsError     bool      `json:"is_error,omitempty"`
	EditedFile  string    `json:"edited_file,omitempty"`
	WriteAction bool      `json:"write_action,omitempty"`
}

// ValidateArgs converts a raw tool-call argument map into the tagged union.
// Unknown shapes degrade to the unstructured variant rather than being
// rejected — observation must never fail a host tool call.
func ValidateArgs(tool string, raw map[string]any) ToolArgs {
	str := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := raw[k].(string); ok && v != "" {
				return v
			}
		}
		return ""
	}

	path := str("file_path", "path", "filename")
	switch {
	case isEditTool(tool) && path != "":
		return ToolArgs{
			Kind:     ArgsFileEdit,
			FilePath: path,
			OldText:  str("old_string", "old_text", "old"),
			NewText:  str("new_string", "new_text", "new"),
		}
	case isWriteTool(tool) && path != "":
		return ToolArgs{
			Kind:     ArgsFileWrite,
			FilePath: path,
			NewText:  str("content", "contents", "text"),
		}
	case isShellTool(tool):
		if cmd := str("command", "cmd", "script"); cmd != "" {
			return ToolArgs{Kind: ArgsShell, Command: cmd}
		}
	case isSearchTool(tool):
		if q := str("pattern", "query", "q"); q != "" {
			return ToolArgs{Kind: ArgsSearch, Query: q}
		}
	}
	return ToolArgs{Kind: ArgsUnstructured, Raw: raw}
}

// NewObservation builds an Observation from a completed tool execution,
// deriving the edited-file path and write-action flag from the validated
// arguments and truncating the result text.
func NewObservation(tool string, args ToolArgs, result string, isErr bool) Observation {
	obs := Observation{
		Timestamp: time.Now(),
		Tool:      tool,
		Args:      args,
		Result:    truncate(result, maxResultLength),
		IsError:   isErr,
	}
	switch args.Kind {
	case ArgsFileEdit:
		obs.EditedFile = args.FilePath
		obs.WriteAction = true
	case ArgsFileWrite:
		obs.EditedFile = args.FilePath
		obs.WriteAction = true
	case ArgsShell:
		obs.WriteAction = looksMutating(args.Command)
	}
	return obs
}

func isEditTool(tool string) bool {
	t := strings.ToLower(tool)
	return strings.Contains(t, "edit") || strings.Contains(t, "patch") ||
		strings.Contains(t, "replace")
}

func isWriteTool(tool string) bool {
	t := strings.ToLower(tool)
	return strings.Contains(t, "write") || strings.Contains(t, "create")
}

func isShellTool(tool string) bool {
	t := strings.ToLower(tool)
	return t == "bash" || t == "shell" || t == "sh" ||
		strings.Contains(t, "exec") || strings.Contains(t, "terminal")
}

func isSearchTool(tool string) bool {
	t := strings.ToLower(tool)
	return strings.Contains(t, "search") || strings.Contains(t, "grep") ||
		strings.Contains(t, "glob") || strings.Contains(t, "find")
}

// looksMutating reports whether a shell command plausibly changes state.
// Heuristic only — used for the write-action flag on shell observations.
func looksMutating(cmd string) bool {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "rm", "mv", "cp", "mkdir", "touch", "chmod", "chown", "git",
		"npm", "yarn", "pip", "make", "cargo":
		return true
	}
	return strings.Contains(cmd, ">") || strings.Contains(cmd, "install")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
