// Package prompts implements MCP prompt handlers for codex-relay.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// PaginatePrompt handles the codex-paginate MCP prompt.
// It tells the AI how to run a codex task and collect every page.
type PaginatePrompt struct{}

// NewPaginatePrompt creates a PaginatePrompt.
func NewPaginatePrompt() *PaginatePrompt {
	return &PaginatePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *PaginatePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("codex-paginate",
		mcp.WithPromptDescription(
			"Run a Codex task and follow nextPageToken until the full answer has been read.",
		),
		mcp.WithArgument("task",
			mcp.ArgumentDescription("What Codex should do"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("session_id",
			mcp.ArgumentDescription("Optional session id to keep conversational context across calls"),
		),
	)
}

// Handle processes the codex-paginate prompt request.
func (p *PaginatePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	task := strings.TrimSpace(req.Params.Arguments["task"])
	if task == "" {
		return nil, fmt.Errorf("argument 'task' is required")
	}

	sessionHint := "Do not pass a sessionId; this is a one-off task."
	if id := strings.TrimSpace(req.Params.Arguments["session_id"]); id != "" {
		sessionHint = fmt.Sprintf("Pass sessionId=%q so earlier turns of this conversation are included.", id)
	}

	return &mcp.GetPromptResult{
		Description: "Run a Codex task and read every page",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please run the `codex` tool with this prompt:\n\n%s\n\n"+
						"%s\n\n"+
						"Then:\n"+
						"1. If the result carries a nextPageToken (in _meta or as a {\"nextPageToken\":...} item), "+
						"call `codex` again with only pageToken set to that value\n"+
						"2. Repeat until no nextPageToken is returned\n"+
						"3. Join the pages in order and work from the complete answer\n"+
						"4. If a page comes back as \"No data found for pageToken\", the remainder expired: rerun the original prompt",
					task, sessionHint,
				)),
			},
		},
	}, nil
}
