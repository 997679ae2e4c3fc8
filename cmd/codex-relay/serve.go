package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/codex-relay/internal/config"
	relayserver "github.com/HendryAvila/codex-relay/internal/server"
	"github.com/HendryAvila/codex-relay/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

type serveFlags struct {
	transport      string
	httpAddr       string
	metricsAddr    string
	logLevel       string
	sessionBackend string
}

func newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&f.transport, "transport", config.TransportStdio, "MCP transport: stdio or http")
	cmd.Flags().StringVar(&f.httpAddr, "http-addr", "", "Listen address for the http transport")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.Flags().StringVar(&f.sessionBackend, "session-backend", "", "Session store: memory or sqlite")
	return cmd
}

// apply copies explicitly set flags over cfg.
func (f serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := func(name, value string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst = value
		}
	}
	set("transport", f.transport, &cfg.Transport)
	set("http-addr", f.httpAddr, &cfg.HTTPAddr)
	set("metrics-addr", f.metricsAddr, &cfg.MetricsAddr)
	set("log-level", f.logLevel, &cfg.LogLevel)
	set("session-backend", f.sessionBackend, &cfg.SessionBackend)
}

func run(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	// Logs go to stderr so they don't interfere with the stdio transport.
	logger := telemetry.NewLogger(os.Stderr, telemetry.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	var metrics *telemetry.Metrics
	if cfg.MetricsAddr != "" {
		metrics = telemetry.NewMetrics()
	}

	s, cleanup, err := relayserver.New(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Graceful shutdown on interrupt.
	sigCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return serveMCP(gctx, s, cfg, logger)
	})

	if metrics != nil {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(metrics),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("codex-relay stopped")
	return nil
}

// serveMCP runs the configured transport until ctx is cancelled or the
// client goes away.
func serveMCP(ctx context.Context, s *server.MCPServer, cfg config.Config, logger *slog.Logger) error {
	switch cfg.Transport {
	case config.TransportHTTP:
		httpSrv := server.NewStreamableHTTPServer(s)
		errCh := make(chan error, 1)
		go func() {
			logger.Info("mcp http listening", "addr", cfg.HTTPAddr)
			errCh <- httpSrv.Start(cfg.HTTPAddr)
		}()
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		}
	default:
		logger.Info("mcp stdio ready")
		return server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
	}
}

func metricsMux(m *telemetry.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
