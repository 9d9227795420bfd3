// Package logging builds the process-wide structured logger. Logs go to
// stderr: stdout belongs to the MCP stdio transport and must stay clean.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a text slog.Logger at the named level. Unknown level names
// fall back to info.
func New(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
