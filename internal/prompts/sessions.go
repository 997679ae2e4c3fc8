package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// SessionsPrompt handles the codex-sessions MCP prompt.
// It instructs the AI to review and tidy conversation sessions.
type SessionsPrompt struct{}

// NewSessionsPrompt creates a SessionsPrompt.
func NewSessionsPrompt() *SessionsPrompt {
	return &SessionsPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *SessionsPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("codex-sessions",
		mcp.WithPromptDescription(
			"Review the live Codex conversation sessions and clean up the ones no longer needed.",
		),
	)
}

// Handle processes the codex-sessions prompt request.
func (p *SessionsPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Codex Sessions",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `listSessions` to see my Codex conversation sessions.\n\n" +
						"Then:\n" +
						"1. Summarize them in a short table (id, turns, size, last used, expiry)\n" +
						"2. Use `sessionStats` on any session I ask about\n" +
						"3. Ask before calling `deleteSession` on anything",
				),
			},
		},
	}, nil
}
