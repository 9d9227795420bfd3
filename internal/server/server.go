// Package server wires all components and creates the MCP server instance.
//
// This is the composition root: it builds the concrete backing store,
// oracle client, buffer, extractor, and coordinator, and injects them into
// the host-facing tools. No business logic lives here — only wiring.
package server

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/devrecall/devrecall/internal/config"
	"github.com/devrecall/devrecall/internal/extract"
	"github.com/devrecall/devrecall/internal/flush"
	"github.com/devrecall/devrecall/internal/hosttools"
	"github.com/devrecall/devrecall/internal/knowledge"
	"github.com/devrecall/devrecall/internal/logging"
	"github.com/devrecall/devrecall/internal/memstore"
	"github.com/devrecall/devrecall/internal/observe"
	"github.com/devrecall/devrecall/internal/oracle"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all host tools registered.
//
// The returned cleanup function runs the exit-time safety flush and closes
// the backing store; call it on shutdown (typically via defer). It is
// always non-nil and safe to call more than once.
func New(cfg config.Config) (*server.MCPServer, func(), error) {
	log := logging.New(cfg.LogLevel)

	// --- Persistence ---

	backing, closeStore, err := newBackingStore(cfg.Storage, log)
	if err != nil {
		return nil, noop, err
	}

	// --- Oracle (optional) ---

	var orc oracle.Oracle
	if cfg.Oracle.BaseURL != "" {
		orc = oracle.NewClient(cfg.Oracle.BaseURL, cfg.Oracle.APIKey, cfg.Oracle.Model, cfg.Oracle.Timeout)
	} else {
		log.Info("no oracle configured, running rule-based extraction only")
	}

	// --- Core pipeline ---

	store := knowledge.NewStore(knowledgeConfig(cfg.Thresholds), backing, orc, log)
	buffer := observe.NewBuffer()
	extractor := extract.New(orc, store, cfg.FullAuto, log)
	coordinator := flush.New(buffer, extractor, flush.Config{
		MinActions:  cfg.ObserveMinActions,
		RequireEdit: cfg.RequireEditForRecord,
	}, log)

	cleanup := func() {
		coordinator.OnProcessExit()
		closeStore()
	}

	// --- MCP server ---

	s := server.NewMCPServer(
		"devrecall",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	observeTool := hosttools.NewObserveEventTool(buffer, coordinator, cfg.AutoObserve, cfg.ObserveIgnoreTools)
	s.AddTool(observeTool.Definition(), observeTool.Handle)

	idleTool := hosttools.NewSessionIdleTool(coordinator)
	s.AddTool(idleTool.Definition(), idleTool.Handle)

	deletedTool := hosttools.NewSessionDeletedTool(coordinator)
	s.AddTool(deletedTool.Definition(), deletedTool.Handle)

	saveTool := hosttools.NewRecallSaveTool(store)
	s.AddTool(saveTool.Definition(), saveTool.Handle)

	guidesTool := hosttools.NewRecallGuidesTool(store, buffer)
	s.AddTool(guidesTool.Definition(), guidesTool.Handle)

	searchTool := hosttools.NewRecallSearchTool(store)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	statsTool := hosttools.NewRecallStatsTool(store, buffer, coordinator)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	return s, cleanup, nil
}

// newBackingStore builds the configured persistence backend. A sqlite
// backend that fails to open degrades to the file backend rather than
// refusing to start.
func newBackingStore(cfg config.Storage, log *slog.Logger) (memstore.Store, func(), error) {
	if cfg.Backend == "sqlite" {
		db, err := memstore.NewSQLiteStore(cfg.DataDir)
		if err == nil {
			return db, func() {
				if err := db.Close(); err != nil {
					log.Warn("closing sqlite store", "error", err)
				}
			}, nil
		}
		log.Warn("sqlite backend unavailable, falling back to file storage", "error", err)
	}

	fs, err := memstore.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, noop, fmt.Errorf("opening file store: %w", err)
	}
	return fs, noop, nil
}

func knowledgeConfig(t config.Thresholds) knowledge.Config {
	kc := knowledge.DefaultConfig()
	if t.Lexical > 0 {
		kc.LexicalThreshold = t.Lexical
	}
	if t.ExitLexical > 0 {
		kc.ExitLexicalThreshold = t.ExitLexical
	}
	if t.Semantic > 0 {
		kc.SemanticThreshold = t.Semantic
	}
	if t.SemanticCandidates > 0 {
		kc.SemanticCandidates = t.SemanticCandidates
	}
	if t.Guide > 0 {
		kc.GuideThreshold = t.Guide
	}
	if t.MaxTags > 0 {
		kc.MaxTags = t.MaxTags
	}
	return kc
}

// noop is the default cleanup when there is nothing to release.
func noop() {}

func serverInstructions() string {
	return `devrecall is a persistent memory add-on for coding sessions.

Report every completed tool execution with observe_event and notify
session_idle when a session stops working; buffered activity is distilled
into knowledge entries automatically. Before starting work on a topic, call
recall_guides with a short query to pull in what previous sessions learned.
Use recall_save for anything worth keeping that automation would miss.`
}
