package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/codex-relay/internal/relay"
)

// Runner is the orchestrator the codex tool delegates to.
type Runner interface {
	Run(ctx context.Context, req relay.Request) (relay.Result, error)
}

// CodexTool handles the codex MCP tool.
type CodexTool struct {
	relay Runner
}

// NewCodexTool creates a CodexTool.
func NewCodexTool(r Runner) *CodexTool {
	return &CodexTool{relay: r}
}

// Definition returns the MCP tool definition for registration.
func (t *CodexTool) Definition() mcp.Tool {
	return mcp.NewTool(NameCodex,
		mcp.WithDescription(
			"Run the Codex CLI in non-interactive mode for code analysis, generation, or explanation. "+
				"Supports conversational context (via sessionId), pagination, image input, and model control. "+
				"If `model` is omitted, the server default is used (\"gpt-5 medium\" unless configured). "+
				"Use `listModels` to discover locally configured models. "+
				"When a response carries a nextPageToken, call again with only pageToken to get the next page.",
		),
		mcp.WithString("prompt",
			mcp.Description("The coding task, question, or analysis request. If omitted, must provide pageToken."),
		),
		mcp.WithString("sessionId",
			mcp.Description("Stable ID for conversational context. If omitted, each call is stateless."),
		),
		mcp.WithBoolean("resetSession",
			mcp.Description("If true, clears the session for the given sessionId before running."),
		),
		mcp.WithNumber("pageSize",
			mcp.Description("Approximate characters per page (default 40000, min 1000, max 200000)."),
		),
		mcp.WithString("pageToken",
			mcp.Description("Token from a previous response to fetch the next page of output."),
		),
		mcp.WithString("model",
			mcp.Description("Model id for Codex CLI, e.g. \"gpt-5 minimal|low|medium|high\"."),
		),
		mcp.WithArray("image",
			mcp.Description("Path(s) to image file(s) to analyze or explain. Passed to Codex CLI as --image. A single string is accepted too."),
			mcp.WithStringItems(),
		),
		mcp.WithString("approvalPolicy",
			mcp.Description("Advanced: Codex CLI --approval-policy. Specify approval policy for code execution."),
		),
		mcp.WithBoolean("sandbox",
			mcp.Description("Advanced: Codex CLI --sandbox. Run in sandbox mode."),
		),
		mcp.WithString("workingDirectory",
			mcp.Description("Advanced: Codex CLI --working-directory. Set working directory for execution."),
		),
		mcp.WithString("baseInstructions",
			mcp.Description("Advanced: Codex CLI --base-instructions. Set base instructions for the Codex model."),
		),
	)
}

// Handle processes the codex tool call.
func (t *CodexTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageToken := strings.TrimSpace(req.GetString("pageToken", ""))
	prompt := req.GetString("prompt", "")
	if pageToken == "" && strings.TrimSpace(prompt) == "" {
		return invalidArgs(NameCodex, "missing required 'prompt' (or provide a 'pageToken')"), nil
	}
	pageSize := 0
	if _, ok := req.GetArguments()["pageSize"].(float64); ok {
		pageSize = relay.ClampPageSize(intArg(req, "pageSize", 0))
	}

	res, err := t.relay.Run(ctx, relay.Request{
		Prompt:       prompt,
		PageToken:    pageToken,
		SessionID:    strings.TrimSpace(req.GetString("sessionId", "")),
		ResetSession: boolArg(req, "resetSession", false),
		PageSize:     pageSize,
		Options: relay.InvocationOptions{
			Model:            req.GetString("model", ""),
			Images:           stringsArg(req, "image"),
			ApprovalPolicy:   strings.TrimSpace(req.GetString("approvalPolicy", "")),
			Sandbox:          boolArg(req, "sandbox", false),
			WorkingDirectory: strings.TrimSpace(req.GetString("workingDirectory", "")),
			BaseInstructions: req.GetString("baseInstructions", ""),
		},
	})
	if err != nil {
		return failed(NameCodex, err), nil
	}

	return pageResult(res), nil
}

// pageResult renders a page. When more pages remain, the token is carried
// both as a second text item and in _meta.nextPageToken.
func pageResult(res relay.Result) *mcp.CallToolResult {
	result := mcp.NewToolResultText(res.Text)
	if res.NextPageToken == "" {
		return result
	}

	marker, _ := json.Marshal(map[string]string{"nextPageToken": res.NextPageToken})
	result.Content = append(result.Content, mcp.NewTextContent(string(marker)))
	result.Meta = mcp.NewMetaFromMap(map[string]any{"nextPageToken": res.NextPageToken})
	return result
}
