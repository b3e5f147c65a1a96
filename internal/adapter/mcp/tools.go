package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/cloutagent/cloutagent/internal/domain/execution"
	"github.com/cloutagent/cloutagent/internal/port/historystore"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.listAgentsTool(),
		s.getAgentTool(),
		s.executeAgentTool(),
		s.getProjectCostTool(),
		s.listExecutionsTool(),
	)
}

func (s *Server) listAgentsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_agents",
		mcplib.WithDescription("List all registered agents"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListAgents,
	}
}

func (s *Server) getAgentTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_agent",
		mcplib.WithDescription("Get a registered agent's configuration by ID"),
		mcplib.WithString("agent_id",
			mcplib.Required(),
			mcplib.Description("The agent ID to look up"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleGetAgent,
	}
}

func (s *Server) executeAgentTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("execute_agent",
		mcplib.WithDescription("Execute an agent with the given input and return the result"),
		mcplib.WithString("agent_id",
			mcplib.Required(),
			mcplib.Description("The agent to execute"),
		),
		mcplib.WithString("input",
			mcplib.Required(),
			mcplib.Description("The user input passed to the agent"),
		),
		mcplib.WithString("project_id",
			mcplib.Description("Project to charge the execution's cost to"),
		),
		mcplib.WithNumber("timeout_ms",
			mcplib.Description("Execution timeout in milliseconds (default 120000)"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleExecuteAgent,
	}
}

func (s *Server) getProjectCostTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_project_cost",
		mcplib.WithDescription("Get the accumulated cost for a project in USD"),
		mcplib.WithString("project_id",
			mcplib.Required(),
			mcplib.Description("The project ID"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleGetProjectCost,
	}
}

func (s *Server) listExecutionsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_executions",
		mcplib.WithDescription("List recent executions for a project, newest first"),
		mcplib.WithString("project_id",
			mcplib.Required(),
			mcplib.Description("The project ID"),
		),
		mcplib.WithNumber("limit",
			mcplib.Description("Maximum number of executions to return"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListExecutions,
	}
}

func (s *Server) handleListAgents(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Agents == nil {
		return mcplib.NewToolResultError("agent registry not configured"), nil
	}
	data, err := json.Marshal(s.deps.Agents.List())
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal agents", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleGetAgent(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Agents == nil {
		return mcplib.NewToolResultError("agent registry not configured"), nil
	}
	agentID, ok := req.GetArguments()["agent_id"].(string)
	if !ok || agentID == "" {
		return mcplib.NewToolResultError("agent_id is required"), nil
	}
	ag, err := s.deps.Agents.Get(agentID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to get agent %s", agentID), err,
		), nil
	}
	data, err := json.Marshal(ag)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal agent", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleExecuteAgent(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Agents == nil || s.deps.Executor == nil {
		return mcplib.NewToolResultError("executor not configured"), nil
	}
	args := req.GetArguments()
	agentID, ok := args["agent_id"].(string)
	if !ok || agentID == "" {
		return mcplib.NewToolResultError("agent_id is required"), nil
	}
	input, ok := args["input"].(string)
	if !ok || input == "" {
		return mcplib.NewToolResultError("input is required"), nil
	}

	ag, err := s.deps.Agents.Get(agentID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to get agent %s", agentID), err,
		), nil
	}

	opts := execution.Options{}
	if ms, ok := args["timeout_ms"].(float64); ok && ms > 0 {
		opts.Timeout = time.Duration(ms) * time.Millisecond
	}

	startedAt := time.Now().UTC()
	result := s.deps.Executor.Execute(ctx, ag, input, opts)

	if projectID, ok := args["project_id"].(string); ok && projectID != "" {
		s.persist(ctx, projectID, agentID, result, startedAt)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleGetProjectCost(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Costs == nil {
		return mcplib.NewToolResultError("cost tracker not configured"), nil
	}
	projectID, ok := req.GetArguments()["project_id"].(string)
	if !ok || projectID == "" {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	total := s.deps.Costs.ProjectTotalCost(ctx, projectID)
	return toolResultJSON(fmt.Sprintf(`{"projectId":%q,"totalCost":%g}`, projectID, total)), nil
}

func (s *Server) handleListExecutions(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.History == nil {
		return mcplib.NewToolResultError("history not configured"), nil
	}
	args := req.GetArguments()
	projectID, ok := args["project_id"].(string)
	if !ok || projectID == "" {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	opts := historystore.ListOptions{}
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		opts.Limit = int(limit)
	}

	summaries, total, err := s.deps.History.List(ctx, projectID, opts)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list executions", err), nil
	}
	data, err := json.Marshal(map[string]any{"executions": summaries, "total": total})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal executions", err), nil
	}
	return toolResultJSON(string(data)), nil
}

// persist saves history and cost for a charged execution. Failures do not
// affect the tool result.
func (s *Server) persist(ctx context.Context, projectID, agentID string, result *execution.Result, startedAt time.Time) {
	if s.deps.History != nil {
		if err := s.deps.History.Record(ctx, projectID, agentID, result, startedAt); err != nil {
			slog.Error("mcp record execution", "execution_id", result.ID, "error", err)
		}
	}
	if s.deps.Costs != nil {
		if err := s.deps.Costs.SaveProjectCost(ctx, projectID, result.ID); err != nil {
			slog.Error("mcp save project cost", "execution_id", result.ID, "project_id", projectID, "error", err)
		}
	}
}

func toolResultJSON(text string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(text)
}
