package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/codex-relay/internal/session"
)

// ─── listSessions ───────────────────────────────────────────────────────────

// ListSessionsTool handles the listSessions MCP tool.
type ListSessionsTool struct {
	store session.Store
}

// NewListSessionsTool creates a ListSessionsTool.
func NewListSessionsTool(store session.Store) *ListSessionsTool {
	return &ListSessionsTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *ListSessionsTool) Definition() mcp.Tool {
	return mcp.NewTool(NameListSessions,
		mcp.WithDescription(
			"List all active sessions with metadata (sessionId, turns, bytes, createdAt, lastUsedAt, expiresAt).",
		),
	)
}

// Handle processes the listSessions tool call.
func (t *ListSessionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := t.store.List()
	if err != nil {
		return failed(NameListSessions, err), nil
	}
	if len(metas) == 0 {
		return mcp.NewToolResultText("No active sessions."), nil
	}

	lines := make([]string, 0, len(metas))
	for _, m := range metas {
		lines = append(lines, fmt.Sprintf("- %s: turns=%d, bytes=%d, createdAt=%s, lastUsedAt=%s, expiresAt=%s",
			m.SessionID, m.Turns, m.Bytes,
			formatTime(m.CreatedAt), formatTime(m.LastUsedAt), formatTime(m.ExpiresAt)))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// ─── sessionStats ───────────────────────────────────────────────────────────

// SessionStatsTool handles the sessionStats MCP tool.
type SessionStatsTool struct {
	store session.Store
}

// NewSessionStatsTool creates a SessionStatsTool.
func NewSessionStatsTool(store session.Store) *SessionStatsTool {
	return &SessionStatsTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *SessionStatsTool) Definition() mcp.Tool {
	return mcp.NewTool(NameSessionStats,
		mcp.WithDescription(
			"Get statistics and metadata for a session, including creation time, last used, "+
				"expiration, number of turns, and bytes used.",
		),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The sessionId to get statistics for."),
		),
	)
}

// Handle processes the sessionStats tool call.
func (t *SessionStatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("sessionId", ""))
	if id == "" {
		return invalidArgs(NameSessionStats, "'sessionId' is required"), nil
	}

	m, ok, err := t.store.Meta(id)
	if err != nil {
		return failed(NameSessionStats, err), nil
	}
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf("Session %s not found.", id)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Session %s:\nturns=%d\nbytes=%d\ncreatedAt=%s\nlastUsedAt=%s\nexpiresAt=%s",
		id, m.Turns, m.Bytes,
		formatTime(m.CreatedAt), formatTime(m.LastUsedAt), formatTime(m.ExpiresAt),
	)), nil
}

// ─── deleteSession ──────────────────────────────────────────────────────────

// DeleteSessionTool handles the deleteSession MCP tool. Deleting an unknown
// session succeeds.
type DeleteSessionTool struct {
	store session.Store
}

// NewDeleteSessionTool creates a DeleteSessionTool.
func NewDeleteSessionTool(store session.Store) *DeleteSessionTool {
	return &DeleteSessionTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *DeleteSessionTool) Definition() mcp.Tool {
	return mcp.NewTool(NameDeleteSession,
		mcp.WithDescription(
			"Delete or expire a session by sessionId. Use this to remove a session and free resources. "+
				"Returns success or failure message.",
		),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The sessionId to delete."),
		),
	)
}

// Handle processes the deleteSession tool call.
func (t *DeleteSessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("sessionId", ""))
	if id == "" {
		return invalidArgs(NameDeleteSession, "'sessionId' is required"), nil
	}
	if err := t.store.Clear(id); err != nil {
		return failed(NameDeleteSession, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s deleted.", id)), nil
}
