package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// PingTool echoes a message back, with the server version in _meta.
type PingTool struct {
	version string
}

// NewPingTool creates a PingTool.
func NewPingTool(version string) *PingTool {
	return &PingTool{version: version}
}

// Definition returns the MCP tool definition for registration.
func (t *PingTool) Definition() mcp.Tool {
	return mcp.NewTool(NamePing,
		mcp.WithDescription("Test MCP server connection. Echoes your message and includes server version in meta."),
		mcp.WithString("message",
			mcp.Description("Message to echo back"),
		),
	)
}

// Handle processes the ping tool call.
func (t *PingTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg := req.GetString("message", "")
	if msg == "" {
		msg = "pong"
	}
	result := mcp.NewToolResultText(msg)
	result.Meta = mcp.NewMetaFromMap(map[string]any{"version": t.version})
	return result, nil
}
