// Package tools implements the MCP tool handlers of codex-relay.
//
// Each tool is a struct that receives its dependencies through its
// constructor, exposes Definition() for registration and Handle() for
// execution. Domain failures are returned as tool error results, never as
// Go errors, so the MCP call itself always succeeds.
package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/codex-relay/internal/relay"
)

// Tool names.
const (
	NameCodex         = relay.ToolName
	NameListSessions  = "listSessions"
	NameSessionStats  = "sessionStats"
	NameDeleteSession = "deleteSession"
	NamePing          = "ping"
	NameHelp          = "help"
	NameListModels    = "listModels"
	NameListTools     = "listTools"
)

// Tool is implemented by every handler in this package.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Register adds every tool to s.
func Register(s *server.MCPServer, tools ...Tool) {
	for _, t := range tools {
		s.AddTool(t.Definition(), t.Handle)
	}
}

// isoMillis matches JavaScript's Date.toISOString, which clients of the
// session tools already parse.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok || math.IsNaN(v) {
		return defaultVal
	}
	// Saturate instead of letting the conversion wrap.
	switch {
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// stringsArg accepts either a single string or an array of strings.
func stringsArg(req mcp.CallToolRequest, key string) []string {
	switch v := req.GetArguments()[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case []string:
		return v
	}
	return nil
}

// invalidArgs reports a request the tool cannot act on.
func invalidArgs(tool, reason string) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("invalid arguments for %s: %s", tool, reason))
}

// failed reports an execution failure inside a tool.
func failed(tool string, err error) *mcp.CallToolResult {
	var rerr *relay.Error
	if errors.As(err, &rerr) {
		return mcp.NewToolResultError(rerr.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err))
}
