package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ListToolsTool returns the JSON definitions of every registered tool.
type ListToolsTool struct {
	catalogue func() []mcp.Tool
}

// NewListToolsTool creates a ListToolsTool. catalogue is evaluated on every
// call so it can include tools registered after this one.
func NewListToolsTool(catalogue func() []mcp.Tool) *ListToolsTool {
	return &ListToolsTool{catalogue: catalogue}
}

// Definition returns the MCP tool definition for registration.
func (t *ListToolsTool) Definition() mcp.Tool {
	return mcp.NewTool(NameListTools,
		mcp.WithDescription("List all available tools and their schemas for client introspection."),
	)
}

// Handle processes the listTools tool call.
func (t *ListToolsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(t.catalogue(), "", "  ")
	if err != nil {
		return failed(NameListTools, fmt.Errorf("marshaling tool definitions: %w", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Catalogue builds the standard tool set. listTools is included and
// describes the whole set, itself among them.
func Catalogue(tools ...Tool) []Tool {
	all := make([]Tool, 0, len(tools)+1)
	all = append(all, tools...)
	all = append(all, NewListToolsTool(func() []mcp.Tool {
		defs := make([]mcp.Tool, 0, len(all))
		for _, t := range all {
			defs = append(defs, t.Definition())
		}
		return defs
	}))
	return all
}
