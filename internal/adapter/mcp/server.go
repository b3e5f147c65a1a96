// Package mcp exposes agents, executions, and cost data over the Model
// Context Protocol so external MCP clients can drive the service.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/cloutagent/cloutagent/internal/domain/agent"
	"github.com/cloutagent/cloutagent/internal/domain/execution"
	"github.com/cloutagent/cloutagent/internal/port/historystore"
)

// AgentReader provides read access to the agent registry.
type AgentReader interface {
	Get(id string) (*agent.Agent, error)
	List() []*agent.Agent
}

// AgentExecutor runs one batch execution.
type AgentExecutor interface {
	Execute(ctx context.Context, ag *agent.Agent, input string, opts execution.Options) *execution.Result
}

// CostAccountant reads and persists per-project cost totals.
type CostAccountant interface {
	ProjectTotalCost(ctx context.Context, projectID string) float64
	SaveProjectCost(ctx context.Context, projectID, executionID string) error
}

// HistoryRecorder persists and lists finished executions.
type HistoryRecorder interface {
	Record(ctx context.Context, projectID, agentID string, result *execution.Result, startedAt time.Time) error
	List(ctx context.Context, projectID string, opts historystore.ListOptions) ([]execution.Summary, int, error)
}

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string
}

// ServerDeps holds the collaborators the MCP tools call into. Nil fields
// disable the corresponding tools with an error result, not a panic.
type ServerDeps struct {
	Agents   AgentReader
	Executor AgentExecutor
	Costs    CostAccountant
	History  HistoryRecorder
}

// Server hosts the MCP tool and resource surface over SSE.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	sse       *mcpserver.SSEServer
	httpSrv   *http.Server
}

// NewServer creates the MCP server and registers all tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithResourceCapabilities(true, true),
		),
	}
	s.registerTools()
	s.registerResources()

	s.sse = mcpserver.NewSSEServer(s.mcpServer)
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           AuthMiddleware(cfg.APIKey, s.sse),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// MCPServer exposes the underlying server, mainly for tests.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Start begins serving in the background.
func (s *Server) Start() error {
	go func() {
		slog.Info("mcp server listening", "addr", s.cfg.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server failed", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
