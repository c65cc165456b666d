package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/engine"
	"github.com/borgframework/borg/internal/notify"
	"github.com/borgframework/borg/internal/repository"
	"github.com/borgframework/borg/internal/services"
)

type echoAgent struct{}

func (echoAgent) Call(_ context.Context, _, user, _ string, _ float64) (string, error) {
	return "echo: " + user, nil
}

// testEnv bundles a fully wired Server over in-memory repositories.
type testEnv struct {
	server    *Server
	workflows repository.WorkflowRepository
	runs      repository.RunRepository
	triggers  repository.TriggerRepository
	manager   *services.RunManager
	handler   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	workflows := repository.NewMemoryWorkflowRepository()
	runs := repository.NewMemoryRunRepository()
	triggers := repository.NewMemoryTriggerRepository()
	schedules := repository.NewMemoryScheduleRepository()

	manager := services.NewRunManager(time.Minute)
	t.Cleanup(manager.Stop)

	eng := engine.New(engine.Adapters{Agent: echoAgent{}}, engine.WithObserver(manager))
	limiter := services.NewConcurrencyLimiter(borg.ConcurrencyLimits{})
	runSvc := services.NewRunService(workflows, runs, eng, limiter, manager)
	retry := services.NewRetryExecutor(eng, runs)
	scheduler := services.NewSchedulerService(schedules, workflows, retry, limiter)

	srv := NewServer(workflows, runSvc, manager)
	srv.SetSchedulerService(scheduler)
	srv.SetConcurrencyLimiter(limiter)
	srv.SetTriggerRepository(triggers)
	srv.SetRetryExecutor(retry)

	return &testEnv{
		server:    srv,
		workflows: workflows,
		runs:      runs,
		triggers:  triggers,
		manager:   manager,
		handler:   srv.Handler(),
	}
}

// linearWorkflow is a trigger -> agent graph in active status.
func linearWorkflow() *borg.Workflow {
	return &borg.Workflow{
		ID:     "wf-linear",
		Name:   "linear",
		Status: borg.WorkflowActive,
		Nodes: []borg.Node{
			{ID: "trigger-1", Kind: borg.NodeTrigger, Config: map[string]any{"trigger_type": "webhook"}},
			{ID: "agent-1", Kind: borg.NodeAgent, Config: map[string]any{"model": "groq/m"}},
		},
		Edges: []borg.Edge{{ID: "e1", Source: "trigger-1", Target: "agent-1"}},
	}
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["status"] != "ok" || body["database"] != "not_configured" {
		t.Errorf("body = %v", body)
	}
}

func TestListModelsEmpty(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/models", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSchedulerStats(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/scheduler/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	stats := decode[map[string]any](t, rec)
	if stats["global_max"] != float64(10) {
		t.Errorf("stats = %v", stats)
	}
}

func TestEmailSettingsRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.server.SetMailer(notify.NewMailer(notify.SMTPSettings{}))
	env.handler = env.server.Handler()

	rec := env.do(t, http.MethodGet, "/api/email/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	settings := decode[EmailSettingsResponse](t, rec)
	if settings.Configured {
		t.Error("mailer should start unconfigured")
	}

	rec = env.do(t, http.MethodPut, "/api/email/settings", map[string]any{
		"host":     "smtp.example.com",
		"username": "bot@example.com",
		"password": "secret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d: %s", rec.Code, rec.Body.String())
	}
	settings = decode[EmailSettingsResponse](t, rec)
	if !settings.Configured || settings.Host != "smtp.example.com" {
		t.Errorf("settings = %+v", settings)
	}
	if settings.Port != 587 {
		t.Errorf("port = %d, want default 587", settings.Port)
	}
	if settings.From != "bot@example.com" {
		t.Errorf("from should default to username, got %q", settings.From)
	}
}
