package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolMiddleware tags every tool call with a correlation id, logs it and
// records its outcome. metrics may be nil.
func ToolMiddleware(logger *slog.Logger, metrics *Metrics) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ctx = WithCorrelationID(ctx, "")
			tool := req.Params.Name
			log := RequestLogger(ctx, logger, tool)

			start := time.Now()
			log.Debug("tool call started")
			result, err := next(ctx, req)
			elapsed := time.Since(start)

			status := "ok"
			switch {
			case err != nil:
				status = "error"
				log.Warn("tool call failed", "err", err, "elapsed", elapsed)
			case result != nil && result.IsError:
				status = "tool_error"
				log.Info("tool call returned an error result", "elapsed", elapsed)
			default:
				log.Debug("tool call finished", "elapsed", elapsed)
			}
			if metrics != nil {
				metrics.RecordToolCall(tool, status, elapsed)
			}
			return result, err
		}
	}
}
