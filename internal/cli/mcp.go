package cli

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/maquette"
	"github.com/aretw0/maquette/internal/logging"
	"github.com/aretw0/maquette/pkg/adapters/mcp"
)

// MCPOptions contains all the configuration for the mcp command.
type MCPOptions struct {
	ConfigPath string
	Transport  string
	Port       int
	Debug      bool
}

// RunMCP exposes the agent over the Model Context Protocol.
func RunMCP(opts MCPOptions) error {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("an API key is required; set api_key in the config or GEMINI_API_KEY")
	}

	// MCP traffic owns stdout, so logs always go to stderr.
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	logger := logging.New(level)
	slog.SetDefault(logger)

	agent, closer, err := buildAgent(cfg, logger)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	srv := mcp.NewServer(agent, maquette.Version)

	switch opts.Transport {
	case "stdio":
		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		slog.Info("Starting Maquette MCP Server (Stdio)...")
		return srv.ServeStdio()
	case "sse":
		slog.Info("Starting Maquette MCP Server (SSE)", "port", opts.Port)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := srv.ServeSSE(ctx, opts.Port); err != nil && err != http.ErrServerClosed {
			return err
		}
		slog.Info("MCP Server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", opts.Transport)
	}
}
