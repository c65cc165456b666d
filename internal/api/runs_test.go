package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/borgframework/borg/internal/borg"
)

func TestExecuteWorkflowReturnsRunID(t *testing.T) {
	env := newTestEnv(t)
	wf := linearWorkflow()
	if err := env.workflows.Save(context.Background(), wf); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodPost, "/api/workflows/"+wf.ID+"/execute", map[string]any{
		"payload": map[string]any{"text": "hello"},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode[map[string]string](t, rec)
	runID := body["run_id"]
	if runID == "" {
		t.Fatal("missing run_id")
	}

	waitForRun(t, env, runID, borg.RunStatusSucceeded)
}

func TestExecuteWorkflowNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/workflows/wf-missing/execute", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListAndGetRuns(t *testing.T) {
	env := newTestEnv(t)
	wf := linearWorkflow()
	if err := env.workflows.Save(context.Background(), wf); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodPost, "/api/workflows/"+wf.ID+"/execute", nil)
	runID := decode[map[string]string](t, rec)["run_id"]
	waitForRun(t, env, runID, borg.RunStatusSucceeded)

	rec = env.do(t, http.MethodGet, "/api/runs?workflow_id="+wf.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	list := decode[struct {
		Runs  []borg.Run `json:"runs"`
		Total int        `json:"total"`
	}](t, rec)
	if list.Total != 1 || len(list.Runs) != 1 {
		t.Fatalf("list = %+v", list)
	}

	rec = env.do(t, http.MethodGet, "/api/runs/"+runID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	run := decode[borg.Run](t, rec)
	if run.Status != borg.RunStatusSucceeded {
		t.Errorf("run status = %s", run.Status)
	}
	if len(run.NodeResults) != 2 {
		t.Errorf("node results = %d, want 2", len(run.NodeResults))
	}

	rec = env.do(t, http.MethodGet, "/api/workflows/"+wf.ID+"/runs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("workflow runs status = %d", rec.Code)
	}
}

func TestCancelInactiveRun(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/runs/run-missing/cancel", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStreamRunEventsReplaysBuffer(t *testing.T) {
	env := newTestEnv(t)
	wf := linearWorkflow()
	if err := env.workflows.Save(context.Background(), wf); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodPost, "/api/workflows/"+wf.ID+"/execute", nil)
	runID := decode[map[string]string](t, rec)["run_id"]
	waitForRun(t, env, runID, borg.RunStatusSucceeded)

	// After completion the whole stream is served from the buffer.
	rec = env.do(t, http.MethodGet, "/api/runs/"+runID+"/events", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stream status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"event: " + borg.EventRunStarted,
		"event: " + borg.EventNodeCompleted,
		"event: done",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %q:\n%s", want, body)
		}
	}
	if !strings.Contains(body, "id: 0\n") {
		t.Errorf("stream has no sequence ids:\n%s", body)
	}
}

func TestStreamRunEventsUnknownRun(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/runs/run-missing/events", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

// waitForRun polls the run repository until the run reaches the wanted
// status or the deadline passes.
func waitForRun(t *testing.T, env *testEnv, runID string, want borg.RunStatus) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if run, err := env.runs.Get(context.Background(), runID); err == nil {
			if run.Status == want {
				return
			}
			if run.FinishedAt != nil {
				t.Fatalf("run finished with status %s, want %s", run.Status, want)
			}
		}
		select {
		case <-deadline:
			t.Fatalf("run %s never reached %s", runID, want)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
