package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/codex-relay/internal/codexconfig"
)

const (
	noConfigText = "No Codex config file found in ~/.codex (config.toml, config.yaml, config.json). Please create one to enable dynamic model listing."
	noModelsText = "No models found in Codex config file."
)

// ListModelsTool lists models from the local Codex config.
type ListModelsTool struct {
	dir func() (string, error)
}

// NewListModelsTool creates a ListModelsTool. A nil dir resolves the Codex
// home directory the usual way.
func NewListModelsTool(dir func() (string, error)) *ListModelsTool {
	if dir == nil {
		dir = codexconfig.Dir
	}
	return &ListModelsTool{dir: dir}
}

// Definition returns the MCP tool definition for registration.
func (t *ListModelsTool) Definition() mcp.Tool {
	return mcp.NewTool(NameListModels,
		mcp.WithDescription(
			"List Codex CLI models discovered from ~/.codex/config.(toml|yaml|json). "+
				"Use this to see models your local CLI is configured for.",
		),
	)
}

// Handle processes the listModels tool call.
func (t *ListModelsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := t.dir()
	if err != nil {
		return failed(NameListModels, err), nil
	}
	models, err := codexconfig.Discover(dir)
	switch {
	case errors.Is(err, codexconfig.ErrNotFound):
		return mcp.NewToolResultError(noConfigText), nil
	case errors.Is(err, codexconfig.ErrNoModels):
		return mcp.NewToolResultError(noModelsText), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(codexconfig.Format(models)), nil
}
