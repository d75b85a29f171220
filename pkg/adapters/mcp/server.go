package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/maquette/pkg/domain"
)

// InstructResponse is the structured result of one agent run.
type InstructResponse struct {
	SessionID   string `json:"session_id" jsonschema_description:"Identifier of the session the run produced"`
	Status      string `json:"status" jsonschema_description:"Terminal status: completed or failed"`
	FinalAnswer string `json:"final_answer,omitempty" jsonschema_description:"Planner's closing answer when the session completed"`
	Turns       int    `json:"turns" jsonschema_description:"Number of turns the session spent"`
	FailureKind string `json:"failure_kind,omitempty" jsonschema_description:"Error classification when the session failed"`
}

// HistoryResponse carries one archived session with its full turn history.
type HistoryResponse struct {
	Session *domain.Session `json:"session" jsonschema_description:"The archived session, turns included"`
}

// Agent defines what the MCP server needs from the correction loop.
type Agent interface {
	Run(ctx context.Context, instruction string) (*domain.Session, error)
	Session(ctx context.Context, id string) (*domain.Session, error)
	Sessions(ctx context.Context) ([]string, error)
}

// Server wraps the agent and exposes it as an MCP Server.
type Server struct {
	agent     Agent
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(agent Agent, version string) *Server {
	s := &Server{
		agent:     agent,
		mcpServer: server.NewMCPServer("maquette-mcp", strings.TrimSpace(version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	// Start the SSE server
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		// Create a timeout context for the graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		fmt.Println("\nShutdown signal received, shutting down server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("CORS Middleware", "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Baggage, Sentry-Trace")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: instruct
	instructTool := mcp.NewTool("instruct",
		mcp.WithDescription("Run one natural-language instruction against the host and return the terminal session."),
		mcp.WithString("instruction", mcp.Required(), mcp.Description("What the host should end up doing, in plain language")),
		mcp.WithOutputSchema[InstructResponse](),
	)
	s.mcpServer.AddTool(instructTool, mcp.NewStructuredToolHandler(s.handleInstruct))

	// TOOL: session_history
	historyTool := mcp.NewTool("session_history",
		mcp.WithDescription("Fetch the full turn history of an archived session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Identifier returned by a previous instruct call")),
		mcp.WithOutputSchema[HistoryResponse](),
	)
	s.mcpServer.AddTool(historyTool, mcp.NewStructuredToolHandler(s.handleSessionHistory))

	// TOOL: list_sessions
	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List the identifiers of all stored sessions, terminated ones included."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.agent.Sessions(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(ids)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleInstruct(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (InstructResponse, error) {
	instruction, _ := args["instruction"].(string)
	if strings.TrimSpace(instruction) == "" {
		return InstructResponse{}, fmt.Errorf("instruction must not be empty")
	}

	session, err := s.agent.Run(ctx, instruction)
	if err != nil {
		slog.Warn("MCP Instruct: run aborted", "error", err)
		return InstructResponse{}, fmt.Errorf("run failed: %w", err)
	}

	return InstructResponse{
		SessionID:   session.ID,
		Status:      string(session.Status),
		FinalAnswer: session.FinalAnswer,
		Turns:       len(session.Turns),
		FailureKind: string(session.FailureKind),
	}, nil
}

func (s *Server) handleSessionHistory(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (HistoryResponse, error) {
	id, _ := args["session_id"].(string)

	session, err := s.agent.Session(ctx, id)
	if err != nil {
		return HistoryResponse{}, fmt.Errorf("load failed: %w", err)
	}

	return HistoryResponse{Session: session}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: maquette://sessions
	s.mcpServer.AddResource(mcp.NewResource("maquette://sessions", "Stored Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.agent.Sessions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		jsonBytes, _ := json.Marshal(ids)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "maquette://sessions",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
