package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	kmcp "github.com/sanonone/kektornav/internal/mcp"
	"github.com/sanonone/kektornav/internal/server"
	"github.com/sanonone/kektornav/internal/telemetry"
	"github.com/sanonone/kektornav/pkg/engine"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	configPath string
	httpAddr   string
	dataDir    string
	logLevel   string
	mcp        bool
}

// loadServeConfig reads the config file and applies explicit flags on top.
func loadServeConfig(cmd *cobra.Command) (server.Config, error) {
	cfg, err := server.LoadConfig(serveFlags.configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("http-addr") {
		cfg.HTTPAddr = serveFlags.httpAddr
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = serveFlags.dataDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = serveFlags.logLevel
	}
	if token := os.Getenv("KEKTORNAV_AUTH_TOKEN"); token != "" && cfg.AuthToken == "" {
		cfg.AuthToken = token
	}
	return cfg, cfg.Validate()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}
	level, _ := cfg.SlogLevel()
	setupLogging(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.Tracing.ServiceVersion = version
	shutdownTracing, err := telemetry.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing setup failed: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("Tracer shutdown failed", "error", err)
		}
	}()

	eng, err := engine.Open(cfg.EngineOptions())
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			slog.Error("Engine close failed", "error", err)
		}
	}()

	srv, err := server.NewServer(eng, cfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() { errCh <- srv.Run() }()

	if serveFlags.mcp {
		mcpServer := kmcp.NewMCPServer(eng, version)
		go func() {
			slog.Info("MCP server listening on stdio")
			err := mcpServer.Run(ctx, &mcp.StdioTransport{})
			if err == nil {
				// The client closed the session.
				err = errMCPClosed
			}
			errCh <- err
		}()
	}

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err = <-errCh:
		if errors.Is(err, errMCPClosed) {
			err = nil
		}
	}

	srv.Shutdown()
	return err
}

var errMCPClosed = errors.New("MCP session closed")
