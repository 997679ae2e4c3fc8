package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/codex-relay/internal/proc"
)

// CommandRunner runs a short-lived command and captures its output.
type CommandRunner interface {
	Run(ctx context.Context, exe string, args []string) (proc.Output, error)
}

// HelpTool returns `codex --help`.
type HelpTool struct {
	runner   CommandRunner
	codexBin string
}

// NewHelpTool creates a HelpTool.
func NewHelpTool(runner CommandRunner, codexBin string) *HelpTool {
	if codexBin == "" {
		codexBin = "codex"
	}
	return &HelpTool{runner: runner, codexBin: codexBin}
}

// Definition returns the MCP tool definition for registration.
func (t *HelpTool) Definition() mcp.Tool {
	return mcp.NewTool(NameHelp,
		mcp.WithDescription("Get Codex CLI help information. Returns the CLI help output for Codex."),
	)
}

// Handle processes the help tool call.
func (t *HelpTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := t.runner.Run(ctx, proc.Executable(t.codexBin), []string{"--help"})
	if err != nil {
		return failed(NameHelp, err), nil
	}
	text := out.Stdout
	if strings.TrimSpace(text) == "" {
		text = "No help information available"
	}
	return mcp.NewToolResultText(text), nil
}
