package telemetry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	dto "github.com/prometheus/client_model/go"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, "json")
	logger.Info("hello", "k", "v")

	out := buf.String()
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("json log = %q, want a JSON object with k=v", out)
	}
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn, "text")
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn line missing")
	}
}

func TestCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "fixed")
	if got := CorrelationID(ctx); got != "fixed" {
		t.Errorf("CorrelationID = %q, want fixed", got)
	}

	generated := CorrelationID(WithCorrelationID(context.Background(), ""))
	if len(generated) != 36 {
		t.Errorf("generated id = %q, want a UUID", generated)
	}
	if CorrelationID(context.Background()) != "" {
		t.Error("bare context should have no correlation id")
	}
}

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchLabels(metric, labels) {
				if c := metric.GetCounter(); c != nil {
					return c.GetValue()
				}
				if g := metric.GetGauge(); g != nil {
					return g.GetValue()
				}
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, want map[string]string) bool {
	got := make(map[string]string)
	for _, lp := range metric.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.CodexRun("ok")
	m.CodexRun("ok")
	m.CodexRun("error")
	m.PageServed("first")
	m.RecordToolCall("codex", "ok", time.Second)

	if got := counterValue(t, m, "codex_relay_codex_runs_total", map[string]string{"status": "ok"}); got != 2 {
		t.Errorf("codex_runs_total{ok} = %v, want 2", got)
	}
	if got := counterValue(t, m, "codex_relay_pages_served_total", map[string]string{"kind": "first"}); got != 1 {
		t.Errorf("pages_served_total{first} = %v, want 1", got)
	}
	if got := counterValue(t, m, "codex_relay_tool_calls_total", map[string]string{"tool": "codex", "status": "ok"}); got != 1 {
		t.Errorf("tool_calls_total = %v, want 1", got)
	}
}

func TestMetrics_StoreGaugesAndHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveStores(func() float64 { return 3 }, func() float64 { return 7 })

	if got := counterValue(t, m, "codex_relay_sessions_active", nil); got != 3 {
		t.Errorf("sessions_active = %v, want 3", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "codex_relay_pending_pages 7") {
		t.Errorf("/metrics output missing pending_pages gauge:\n%s", body)
	}
}

func TestToolMiddleware(t *testing.T) {
	m := NewMetrics()
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug, "text")
	mw := ToolMiddleware(logger, m)

	var seenID string
	ok := mw(func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		seenID = CorrelationID(ctx)
		return mcp.NewToolResultText("fine"), nil
	})
	toolErr := mw(func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("bad input"), nil
	})
	hardErr := mw(func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, errors.New("boom")
	})

	req := mcp.CallToolRequest{}
	req.Params.Name = "ping"
	if _, err := ok(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = toolErr(context.Background(), req)
	if _, err := hardErr(context.Background(), req); err == nil {
		t.Error("middleware must pass handler errors through")
	}

	if seenID == "" {
		t.Error("handler should see a correlation id in its context")
	}
	if !strings.Contains(buf.String(), "correlation_id="+seenID) {
		t.Errorf("log output missing correlation id %q:\n%s", seenID, buf.String())
	}
	for status, want := range map[string]float64{"ok": 1, "tool_error": 1, "error": 1} {
		got := counterValue(t, m, "codex_relay_tool_calls_total", map[string]string{"tool": "ping", "status": status})
		if got != want {
			t.Errorf("tool_calls_total{ping,%s} = %v, want %v", status, got, want)
		}
	}
}
