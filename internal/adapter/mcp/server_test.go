package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	camcp "github.com/cloutagent/cloutagent/internal/adapter/mcp"
	"github.com/cloutagent/cloutagent/internal/domain"
	"github.com/cloutagent/cloutagent/internal/domain/agent"
	"github.com/cloutagent/cloutagent/internal/domain/cost"
	"github.com/cloutagent/cloutagent/internal/domain/execution"
	"github.com/cloutagent/cloutagent/internal/port/historystore"
)

// --- Mocks ---

type mockAgentReader struct {
	agents map[string]*agent.Agent
}

func (m *mockAgentReader) Get(id string) (*agent.Agent, error) {
	if ag, ok := m.agents[id]; ok {
		return ag, nil
	}
	return nil, fmt.Errorf("%w: agent %s", domain.ErrNotFound, id)
}

func (m *mockAgentReader) List() []*agent.Agent {
	out := make([]*agent.Agent, 0, len(m.agents))
	for _, ag := range m.agents {
		out = append(out, ag)
	}
	return out
}

type mockExecutor struct {
	result *execution.Result
}

func (m *mockExecutor) Execute(_ context.Context, _ *agent.Agent, _ string, _ execution.Options) *execution.Result {
	return m.result
}

type mockCosts struct {
	totals map[string]float64
	saved  []string
}

func (m *mockCosts) ProjectTotalCost(_ context.Context, projectID string) float64 {
	return m.totals[projectID]
}

func (m *mockCosts) SaveProjectCost(_ context.Context, projectID, executionID string) error {
	m.saved = append(m.saved, projectID+"/"+executionID)
	return nil
}

type mockHistory struct {
	recorded  []string
	summaries []execution.Summary
}

func (m *mockHistory) Record(_ context.Context, projectID, _ string, result *execution.Result, _ time.Time) error {
	m.recorded = append(m.recorded, projectID+"/"+result.ID)
	return nil
}

func (m *mockHistory) List(_ context.Context, _ string, _ historystore.ListOptions) ([]execution.Summary, int, error) {
	return m.summaries, len(m.summaries), nil
}

// --- Tests ---

func TestNewServer(t *testing.T) {
	cfg := camcp.ServerConfig{
		Addr:    ":3001",
		Name:    "test-server",
		Version: "0.1.0",
	}
	s := camcp.NewServer(cfg, camcp.ServerDeps{})
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
	if s.MCPServer() == nil {
		t.Fatal("MCPServer() returned nil")
	}
}

func TestServerStartStop(t *testing.T) {
	cfg := camcp.ServerConfig{
		Addr:    ":0",
		Name:    "test-server",
		Version: "0.1.0",
	}
	s := camcp.NewServer(cfg, camcp.ServerDeps{})

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestToolRegistration(t *testing.T) {
	s := camcp.NewServer(camcp.ServerConfig{Name: "test", Version: "0.1.0"}, camcp.ServerDeps{})

	tools := s.MCPServer().ListTools()
	expectedTools := map[string]bool{
		"list_agents":      false,
		"get_agent":        false,
		"execute_agent":    false,
		"get_project_cost": false,
		"list_executions":  false,
	}
	if len(tools) != len(expectedTools) {
		t.Fatalf("expected %d tools, got %d", len(expectedTools), len(tools))
	}
	for name := range tools {
		if _, ok := expectedTools[name]; ok {
			expectedTools[name] = true
		} else {
			t.Errorf("unexpected tool: %s", name)
		}
	}
	for name, found := range expectedTools {
		if !found {
			t.Errorf("expected tool %q not registered", name)
		}
	}
}

func callTool(t *testing.T, s *camcp.Server, name string, args map[string]any) *mcplib.CallToolResult {
	t.Helper()

	tool, ok := s.MCPServer().ListTools()[name]
	if !ok {
		t.Fatalf("%s tool not found", name)
	}
	result, err := tool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return result
}

func TestHandleListAgents(t *testing.T) {
	deps := camcp.ServerDeps{
		Agents: &mockAgentReader{agents: map[string]*agent.Agent{
			"a1": {ID: "a1", Name: "writer"},
			"a2": {ID: "a2", Name: "critic"},
		}},
	}
	s := camcp.NewServer(camcp.ServerConfig{Name: "test", Version: "0.1.0"}, deps)

	result := callTool(t, s, "list_agents", nil)
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var agents []agent.Agent
	if err := json.Unmarshal([]byte(text.Text), &agents); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(agents))
	}
}

func TestHandleExecuteAgent(t *testing.T) {
	costs := &mockCosts{totals: map[string]float64{}}
	history := &mockHistory{}
	deps := camcp.ServerDeps{
		Agents: &mockAgentReader{agents: map[string]*agent.Agent{
			"a1": {ID: "a1", Name: "writer"},
		}},
		Executor: &mockExecutor{result: &execution.Result{
			ID:     "e1",
			Status: execution.StatusCompleted,
			Result: "done",
			Cost:   cost.Breakdown{PromptTokens: 10, CompletionTokens: 5, TotalCost: 0.0001},
		}},
		Costs:   costs,
		History: history,
	}
	s := camcp.NewServer(camcp.ServerConfig{Name: "test", Version: "0.1.0"}, deps)

	result := callTool(t, s, "execute_agent", map[string]any{
		"agent_id":   "a1",
		"input":      "write",
		"project_id": "p1",
	})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	text := result.Content[0].(mcplib.TextContent)
	var res execution.Result
	if err := json.Unmarshal([]byte(text.Text), &res); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if res.Status != execution.StatusCompleted || res.Result != "done" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if len(history.recorded) != 1 || history.recorded[0] != "p1/e1" {
		t.Errorf("expected history record p1/e1, got %v", history.recorded)
	}
	if len(costs.saved) != 1 || costs.saved[0] != "p1/e1" {
		t.Errorf("expected cost save p1/e1, got %v", costs.saved)
	}
}

func TestHandleExecuteAgentMissingInput(t *testing.T) {
	deps := camcp.ServerDeps{
		Agents:   &mockAgentReader{agents: map[string]*agent.Agent{}},
		Executor: &mockExecutor{},
	}
	s := camcp.NewServer(camcp.ServerConfig{Name: "test", Version: "0.1.0"}, deps)

	result := callTool(t, s, "execute_agent", map[string]any{"agent_id": "a1"})
	if !result.IsError {
		t.Fatal("expected error result for missing input")
	}
}

func TestHandleGetProjectCost(t *testing.T) {
	deps := camcp.ServerDeps{
		Costs: &mockCosts{totals: map[string]float64{"p1": 1.5}},
	}
	s := camcp.NewServer(camcp.ServerConfig{Name: "test", Version: "0.1.0"}, deps)

	result := callTool(t, s, "get_project_cost", map[string]any{"project_id": "p1"})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	text := result.Content[0].(mcplib.TextContent)
	var payload struct {
		ProjectID string  `json:"projectId"`
		TotalCost float64 `json:"totalCost"`
	}
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if payload.TotalCost != 1.5 {
		t.Fatalf("expected cost 1.5, got %f", payload.TotalCost)
	}
}

func TestHandleNilDeps(t *testing.T) {
	s := camcp.NewServer(camcp.ServerConfig{Name: "test", Version: "0.1.0"}, camcp.ServerDeps{})

	result := callTool(t, s, "list_agents", nil)
	if !result.IsError {
		t.Fatal("expected error result when deps are nil")
	}
}
