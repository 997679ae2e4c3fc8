// Package resources implements MCP resource handlers for codex-relay.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (codex-relay://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/codex-relay/internal/session"
)

// SessionsURI addresses the live session listing.
const SessionsURI = "codex-relay://sessions"

// Handler manages codex-relay resource endpoints.
type Handler struct {
	store session.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store session.Store) *Handler {
	return &Handler{store: store}
}

// SessionsResource returns the MCP resource definition for live sessions.
func (h *Handler) SessionsResource() mcp.Resource {
	return mcp.NewResource(
		SessionsURI,
		"Codex Sessions",
		mcp.WithResourceDescription("Live conversation sessions with turn counts, sizes and expiry times"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleSessions returns live session metadata as JSON.
func (h *Handler) HandleSessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	metas, err := h.store.List()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(struct {
		Sessions []session.Meta `json:"sessions"`
	}{Sessions: metas}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling sessions: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
