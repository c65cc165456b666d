package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/borgframework/borg/internal/borg"
)

func TestScheduleCRUD(t *testing.T) {
	env := newTestEnv(t)
	wf := linearWorkflow()
	if err := env.workflows.Save(context.Background(), wf); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodPost, "/api/schedules", map[string]any{
		"workflow_id": wf.ID,
		"node_id":     "trigger-1",
		"cron_expr":   "*/5 * * * *",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[borg.Schedule](t, rec)
	if created.ID == "" || !created.Enabled {
		t.Fatalf("created = %+v", created)
	}
	if created.NextRunAt.IsZero() {
		t.Error("next_run_at not set")
	}

	rec = env.do(t, http.MethodGet, "/api/schedules/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/schedules?workflow_id="+wf.ID, nil)
	list := decode[[]borg.Schedule](t, rec)
	if len(list) != 1 {
		t.Fatalf("list = %d", len(list))
	}

	rec = env.do(t, http.MethodPost, "/api/schedules/"+created.ID+"/pause", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pause status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/schedules/"+created.ID, nil)
	if sched := decode[borg.Schedule](t, rec); sched.Enabled {
		t.Error("schedule still enabled after pause")
	}

	rec = env.do(t, http.MethodPost, "/api/schedules/"+created.ID+"/resume", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resume status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/schedules/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/schedules/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", rec.Code)
	}
}

func TestCreateScheduleValidation(t *testing.T) {
	env := newTestEnv(t)
	wf := linearWorkflow()
	if err := env.workflows.Save(context.Background(), wf); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing workflow", map[string]any{"cron_expr": "* * * * *"}, http.StatusBadRequest},
		{"missing cron", map[string]any{"workflow_id": wf.ID}, http.StatusBadRequest},
		{"unknown workflow", map[string]any{"workflow_id": "wf-x", "cron_expr": "* * * * *"}, http.StatusNotFound},
		{"bad cron", map[string]any{"workflow_id": wf.ID, "cron_expr": "bogus"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := env.do(t, http.MethodPost, "/api/schedules", tc.body)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestTriggerScheduleNow(t *testing.T) {
	env := newTestEnv(t)
	wf := linearWorkflow()
	if err := env.workflows.Save(context.Background(), wf); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodPost, "/api/schedules", map[string]any{
		"workflow_id": wf.ID,
		"node_id":     "trigger-1",
		"cron_expr":   "0 0 * * *",
	})
	created := decode[borg.Schedule](t, rec)

	rec = env.do(t, http.MethodPost, "/api/schedules/"+created.ID+"/trigger", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("trigger status = %d: %s", rec.Code, rec.Body.String())
	}

	_, total, _ := env.runs.List(context.Background(), wf.ID, "", 10, 0)
	if total != 1 {
		t.Errorf("runs = %d, want 1", total)
	}
}
