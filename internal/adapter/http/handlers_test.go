package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cloutagent/cloutagent/internal/adapter/costfile"
	"github.com/cloutagent/cloutagent/internal/adapter/historyfile"
	"github.com/cloutagent/cloutagent/internal/adapter/ws"
	"github.com/cloutagent/cloutagent/internal/port/provider"
	"github.com/cloutagent/cloutagent/internal/secrets"
	"github.com/cloutagent/cloutagent/internal/service"
)

type stubProvider struct{}

func (stubProvider) Complete(_ context.Context, _ provider.Request) (*provider.Response, error) {
	return &provider.Response{
		Text:  "hello from the model",
		Usage: provider.Usage{InputTokens: 1000, OutputTokens: 500},
	}, nil
}

func (stubProvider) Stream(_ context.Context, _ provider.Request, cb provider.StreamCallbacks) (*provider.Response, error) {
	cb.OnText("hello")
	cb.OnUsage(provider.Usage{InputTokens: 10, OutputTokens: 5})
	return &provider.Response{
		Text:  "hello",
		Usage: provider.Usage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

func testRouter(t *testing.T) chi.Router {
	t.Helper()

	vault, err := secrets.NewVault(func() (map[string]string, error) {
		return map[string]string{service.APIKeySecret: "sk-test"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	tracker := service.NewCostTracker("", costfile.NewStore(dir+"/costs"))
	h := &Handlers{
		Registry: service.NewAgentRegistry(vault),
		Engine:   service.NewExecutionService(stubProvider{}, tracker, 0),
		Tracker:  tracker,
		History:  service.NewHistoryService(historyfile.NewStore(dir + "/projects")),
		Hub:      ws.NewHub(),
	}

	r := chi.NewRouter()
	MountRoutes(r, h)
	return r
}

func doRequest(t *testing.T, r chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateAgentAndGet(t *testing.T) {
	r := testRouter(t)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/agents",
		`{"id":"a1","name":"writer","model":"claude-sonnet-4-5","maxTokens":4096}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/agents/a1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"writer"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestCreateAgentMissingID(t *testing.T) {
	r := testRouter(t)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/agents", `{"name":"writer"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGetAgentNotFound(t *testing.T) {
	r := testRouter(t)

	rec := doRequest(t, r, http.MethodGet, "/api/v1/agents/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestExecuteAgent(t *testing.T) {
	r := testRouter(t)

	doRequest(t, r, http.MethodPost, "/api/v1/agents",
		`{"id":"a1","name":"writer","model":"claude-sonnet-4-5","maxTokens":4096}`)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/agents/a1/execute",
		`{"input":"write a haiku","projectId":"p1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"completed"`) || !strings.Contains(body, "hello from the model") {
		t.Errorf("unexpected body: %s", body)
	}

	// Execution persisted both history and cost.
	rec = doRequest(t, r, http.MethodGet, "/api/v1/projects/p1/executions", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("expected one recorded execution, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/projects/p1/costs", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "0.0105") {
		t.Errorf("expected project cost 0.0105, got %s", rec.Body.String())
	}
}

func TestExecuteAgentMissingInput(t *testing.T) {
	r := testRouter(t)

	doRequest(t, r, http.MethodPost, "/api/v1/agents", `{"id":"a1","name":"writer"}`)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/agents/a1/execute", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestStreamExecution(t *testing.T) {
	r := testRouter(t)

	doRequest(t, r, http.MethodPost, "/api/v1/agents", `{"id":"a1","name":"writer"}`)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/agents/a1/execute/stream", `{"input":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected SSE content type, got %q", ct)
	}

	body := rec.Body.String()
	for _, event := range []string{"execution:started", "execution:output", "execution:token-usage", "execution:completed", "result"} {
		if !strings.Contains(body, "event: "+event) {
			t.Errorf("missing %s event in stream:\n%s", event, body)
		}
	}

	started := strings.Index(body, "event: execution:started")
	completed := strings.Index(body, "event: execution:completed")
	if started == -1 || completed == -1 || started > completed {
		t.Error("started event must precede completed event")
	}
}

func TestProjectCostEmpty(t *testing.T) {
	r := testRouter(t)

	rec := doRequest(t, r, http.MethodGet, "/api/v1/projects/ghost/costs", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"totalCost":0`) {
		t.Errorf("expected zero cost, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	r := testRouter(t)

	rec := doRequest(t, r, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}
}
