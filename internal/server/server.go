// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools, prompts and resources that depend on
// abstractions. No business logic lives here.
package server

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/codex-relay/internal/config"
	"github.com/HendryAvila/codex-relay/internal/cursor"
	"github.com/HendryAvila/codex-relay/internal/proc"
	"github.com/HendryAvila/codex-relay/internal/prompts"
	"github.com/HendryAvila/codex-relay/internal/relay"
	"github.com/HendryAvila/codex-relay/internal/resources"
	"github.com/HendryAvila/codex-relay/internal/session"
	"github.com/HendryAvila/codex-relay/internal/telemetry"
	"github.com/HendryAvila/codex-relay/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. metrics may be nil.
//
// The returned cleanup function closes the session store and must be
// called on shutdown. It is always non-nil.
func New(cfg config.Config, logger *slog.Logger, metrics *telemetry.Metrics) (*server.MCPServer, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, noop, err
	}
	if logger == nil {
		logger = telemetry.NewLogger(nil, telemetry.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	}

	// --- Create shared dependencies ---

	sessions := openSessions(cfg, logger)
	cleanup := func() {
		if err := sessions.Close(); err != nil {
			logger.Warn("session store close", "err", err)
		}
	}

	pages := cursor.NewStore(cursor.WithTTL(cfg.CursorTTL))
	runner := proc.NewRunner(cfg.CommandTimeout, logger)

	relayOpts := []relay.Option{relay.WithLogger(logger)}
	if metrics != nil {
		relayOpts = append(relayOpts, relay.WithObserver(metrics))
		metrics.ObserveStores(
			func() float64 {
				metas, err := sessions.List()
				if err != nil {
					return 0
				}
				return float64(len(metas))
			},
			func() float64 { return float64(pages.Len()) },
		)
	}

	svc, err := relay.NewService(relay.Config{
		CodexBin:        cfg.CodexBin,
		DefaultPageSize: cfg.DefaultPageSize,
		DefaultModel:    cfg.DefaultModel,
	}, sessions, pages, runner, relayOpts...)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("creating relay service: %w", err)
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"codex-relay",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(telemetry.ToolMiddleware(logger, metrics)),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register tools ---

	tools.Register(s, tools.Catalogue(
		tools.NewCodexTool(svc),
		tools.NewListSessionsTool(sessions),
		tools.NewSessionStatsTool(sessions),
		tools.NewDeleteSessionTool(sessions),
		tools.NewPingTool(Version),
		tools.NewHelpTool(runner, cfg.CodexBin),
		tools.NewListModelsTool(nil),
	)...)

	// --- Register prompts ---

	paginatePrompt := prompts.NewPaginatePrompt()
	s.AddPrompt(paginatePrompt.Definition(), paginatePrompt.Handle)

	sessionsPrompt := prompts.NewSessionsPrompt()
	s.AddPrompt(sessionsPrompt.Definition(), sessionsPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(sessions)
	s.AddResource(resourceHandler.SessionsResource(), resourceHandler.HandleSessions)

	logger.Info("codex-relay ready",
		"version", Version,
		"session_backend", cfg.SessionBackend,
		"page_size", cfg.DefaultPageSize,
	)
	return s, cleanup, nil
}

// openSessions builds the configured session store. A SQLite store that
// fails to open degrades to the in-memory store: sessions lose durability
// but every tool keeps working.
func openSessions(cfg config.Config, logger *slog.Logger) session.Store {
	opts := []session.Option{session.WithTTL(cfg.SessionTTL)}
	if cfg.SessionBackend == config.BackendSQLite {
		store, err := session.NewSQLiteStore(cfg.DataDir, opts...)
		if err == nil {
			return store
		}
		logger.Warn("sqlite session store disabled, falling back to memory", "err", err)
	}
	return session.NewMemoryStore(opts...)
}

// noop is the cleanup returned when nothing was opened.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use codex-relay effectively.
func serverInstructions() string {
	return `You have access to codex-relay, an MCP server that runs the Codex CLI for you.

## Running Codex
Call the codex tool with a prompt. Each call runs "codex exec" once.
- Pass a stable sessionId to keep a conversation: earlier turns of that
  session are sent along with every new prompt.
- Set resetSession=true to start that conversation over.
- model accepts "<model> <effort>", e.g. "gpt-5 high". Use listModels to see
  what the local Codex config defines.

## Long answers
Answers longer than pageSize characters are split into pages. When a result
carries nextPageToken (in _meta and as a {"nextPageToken": ...} text item),
call codex again with only pageToken set to that value. Repeat until no token
is returned. Tokens expire after a few idle minutes; an expired token returns
"No data found for pageToken (it may have expired)." and the prompt must be
rerun.

## Sessions
listSessions, sessionStats and deleteSession inspect and remove
conversations. Sessions expire on their own after a period of inactivity.`
}
