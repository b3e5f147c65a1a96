package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cloutagent/cloutagent/internal/adapter/otel"
	"github.com/cloutagent/cloutagent/internal/adapter/ws"
	"github.com/cloutagent/cloutagent/internal/domain/agent"
	"github.com/cloutagent/cloutagent/internal/domain/execution"
	"github.com/cloutagent/cloutagent/internal/port/historystore"
	"github.com/cloutagent/cloutagent/internal/port/messagequeue"
	"github.com/cloutagent/cloutagent/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Registry *service.AgentRegistry
	Engine   *service.ExecutionService
	Tracker  *service.CostTracker
	History  *service.HistoryService
	Hub      *ws.Hub
	Queue    messagequeue.Queue
}

// --- Agent endpoints ---

// CreateAgent handles POST /api/v1/agents
func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	cfg, ok := readJSON[agent.Config](w, r)
	if !ok {
		return
	}
	if !requireField(w, cfg.ID, "id") || !requireField(w, cfg.Name, "name") {
		return
	}

	ag, err := h.Registry.Create(cfg)
	if err != nil {
		writeDomainError(w, err, "agent not created")
		return
	}
	writeJSON(w, http.StatusCreated, ag)
}

// ListAgents handles GET /api/v1/agents
func (h *Handlers) ListAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Registry.List())
}

// GetAgent handles GET /api/v1/agents/{id}
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	ag, err := h.Registry.Get(urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, ag)
}

// --- Execution endpoints ---

// executeRequest is the body of an execution call.
type executeRequest struct {
	Input     string            `json:"input"`
	ProjectID string            `json:"projectId,omitempty"`
	TimeoutMS int64             `json:"timeoutMs,omitempty"`
	MaxTokens int               `json:"maxTokens,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
}

func (req executeRequest) options() execution.Options {
	return execution.Options{
		Timeout:   time.Duration(req.TimeoutMS) * time.Millisecond,
		MaxTokens: req.MaxTokens,
		Variables: req.Variables,
	}
}

// ExecuteAgent handles POST /api/v1/agents/{id}/execute
func (h *Handlers) ExecuteAgent(w http.ResponseWriter, r *http.Request) {
	ag, err := h.Registry.Get(urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}

	req, ok := readJSON[executeRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Input, "input") {
		return
	}

	startedAt := time.Now().UTC()
	ctx, span := otel.StartExecutionSpan(r.Context(), ag.ID, ag.Config.Model)
	result := h.Engine.Execute(ctx, ag, req.Input, req.options())
	otel.RecordExecutionID(span, result.ID)
	span.End()
	h.finishExecution(r, ag, req.ProjectID, result, startedAt)

	writeJSON(w, http.StatusOK, result)
}

// finishExecution persists history and project costs for a settled execution.
// Persistence failures are logged inside the services; the execution result
// is returned to the caller regardless.
func (h *Handlers) finishExecution(r *http.Request, ag *agent.Agent, projectID string, result *execution.Result, startedAt time.Time) {
	if projectID == "" {
		return
	}
	ctx, span := otel.StartPersistSpan(r.Context(), projectID, "execution")
	defer span.End()
	if err := h.History.Record(ctx, projectID, ag.ID, result, startedAt); err != nil {
		slog.Error("record execution history", "execution_id", result.ID, "error", err)
	}
	if err := h.Tracker.SaveProjectCost(ctx, projectID, result.ID); err != nil {
		slog.Error("save project cost", "execution_id", result.ID, "project_id", projectID, "error", err)
	}
}

// --- Cost endpoints ---

// costResponse is the payload of a project cost query.
type costResponse struct {
	ProjectID string  `json:"projectId"`
	TotalCost float64 `json:"totalCost"`
}

// ProjectCost handles GET /api/v1/projects/{id}/costs
func (h *Handlers) ProjectCost(w http.ResponseWriter, r *http.Request) {
	projectID := urlParam(r, "id")
	writeJSON(w, http.StatusOK, costResponse{
		ProjectID: projectID,
		TotalCost: h.Tracker.ProjectTotalCost(r.Context(), projectID),
	})
}

// --- History endpoints ---

type historyResponse struct {
	Executions []execution.Summary `json:"executions"`
	Total      int                 `json:"total"`
}

// ListExecutions handles GET /api/v1/projects/{id}/executions
func (h *Handlers) ListExecutions(w http.ResponseWriter, r *http.Request) {
	opts := historystore.ListOptions{
		Status: execution.Status(r.URL.Query().Get("status")),
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			opts.Limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed > 0 {
			opts.Offset = parsed
		}
	}

	summaries, total, err := h.History.List(r.Context(), urlParam(r, "id"), opts)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if summaries == nil {
		summaries = []execution.Summary{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Executions: summaries, Total: total})
}

// GetExecution handles GET /api/v1/projects/{id}/executions/{executionId}
func (h *Handlers) GetExecution(w http.ResponseWriter, r *http.Request) {
	rec, err := h.History.Get(r.Context(), urlParam(r, "id"), urlParam(r, "executionId"))
	if err != nil {
		writeDomainError(w, err, "execution not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// --- Health ---

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"status":      "ok",
		"connections": h.Hub.ConnectionCount(),
	}
	if h.Queue != nil {
		status["queue"] = h.Queue.IsConnected()
	}
	writeJSON(w, http.StatusOK, status)
}
