package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/borgframework/borg/internal/borg"
)

func TestCreateAndGetWorkflow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/workflows", map[string]any{
		"name": "my workflow",
		"nodes": []map[string]any{
			{"id": "trigger-1", "kind": "trigger", "config": map[string]any{"trigger_type": "manual"}},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[borg.Workflow](t, rec)
	if created.ID == "" {
		t.Fatal("workflow was not assigned an id")
	}
	if created.Status != borg.WorkflowDraft {
		t.Errorf("new workflow status = %s, want draft", created.Status)
	}

	rec = env.do(t, http.MethodGet, "/api/workflows/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	got := decode[borg.Workflow](t, rec)
	if got.Name != "my workflow" || len(got.Nodes) != 1 {
		t.Errorf("got = %+v", got)
	}
}

func TestCreateWorkflowRequiresName(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/workflows", map[string]any{"nodes": []any{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetWorkflowNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/workflows/wf-missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUpdateWorkflowKeepsIdentity(t *testing.T) {
	env := newTestEnv(t)
	wf := linearWorkflow()
	if err := env.workflows.Save(context.Background(), wf); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodPut, "/api/workflows/"+wf.ID, map[string]any{
		"name":  "renamed",
		"nodes": wf.Nodes,
		"edges": wf.Edges,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	updated := decode[borg.Workflow](t, rec)
	if updated.ID != wf.ID {
		t.Errorf("id changed: %q", updated.ID)
	}
	if updated.Name != "renamed" {
		t.Errorf("name = %q", updated.Name)
	}
	if updated.Status != borg.WorkflowActive {
		t.Errorf("status should carry over when omitted, got %s", updated.Status)
	}
}

func TestDeleteWorkflow(t *testing.T) {
	env := newTestEnv(t)
	wf := linearWorkflow()
	if err := env.workflows.Save(context.Background(), wf); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodDelete, "/api/workflows/"+wf.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/workflows/"+wf.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", rec.Code)
	}
}

func TestStatusTransitionValidatesOnActivate(t *testing.T) {
	env := newTestEnv(t)

	// A workflow without a trigger node fails validation.
	broken := &borg.Workflow{
		ID:     "wf-broken",
		Name:   "broken",
		Status: borg.WorkflowDraft,
		Nodes: []borg.Node{
			{ID: "agent-1", Kind: borg.NodeAgent, Config: map[string]any{"model": "groq/m"}},
		},
	}
	if err := env.workflows.Save(context.Background(), broken); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodPatch, "/api/workflows/wf-broken/status",
		map[string]string{"status": "active"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("activating invalid workflow = %d, want 422", rec.Code)
	}

	// Pausing never requires validation.
	rec = env.do(t, http.MethodPatch, "/api/workflows/wf-broken/status",
		map[string]string{"status": "paused"})
	if rec.Code != http.StatusOK {
		t.Fatalf("pause status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPatch, "/api/workflows/wf-broken/status",
		map[string]string{"status": "archived"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad status value = %d", rec.Code)
	}
}

func TestValidateWorkflowEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/workflows/validate", map[string]any{
		"name": "no trigger",
		"nodes": []map[string]any{
			{"id": "agent-1", "kind": "agent", "config": map[string]any{"model": "groq/m"}},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[struct {
		Valid  bool                   `json:"valid"`
		Issues []borg.ValidationError `json:"issues"`
	}](t, rec)
	if body.Valid {
		t.Error("workflow without trigger should be invalid")
	}
	if len(body.Issues) == 0 {
		t.Error("expected validation issues")
	}

	rec = env.do(t, http.MethodPost, "/api/workflows/validate", linearWorkflow())
	body = decode[struct {
		Valid  bool                   `json:"valid"`
		Issues []borg.ValidationError `json:"issues"`
	}](t, rec)
	if !body.Valid {
		t.Errorf("valid workflow reported invalid: %+v", body.Issues)
	}
}
