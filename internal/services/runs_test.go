package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/engine"
	"github.com/borgframework/borg/internal/repository"
)

func newTestRunService(t *testing.T, agent engine.AgentCaller) (*RunService, repository.WorkflowRepository, repository.RunRepository, *RunManager) {
	t.Helper()
	workflows := repository.NewMemoryWorkflowRepository()
	runs := repository.NewMemoryRunRepository()
	manager := NewRunManager(time.Minute)
	t.Cleanup(manager.Stop)

	eng := engine.New(engine.Adapters{Agent: agent}, engine.WithObserver(manager))
	limiter := NewConcurrencyLimiter(borg.ConcurrencyLimits{})
	return NewRunService(workflows, runs, eng, limiter, manager), workflows, runs, manager
}

func echoAgent() engine.AgentCaller {
	return agentFunc(func(_ context.Context, _, user, _ string, _ float64) (string, error) {
		return "echo: " + user, nil
	})
}

func TestRunServiceExecute(t *testing.T) {
	svc, workflows, runs, _ := newTestRunService(t, echoAgent())
	ctx := context.Background()

	wf := retryWorkflow()
	if err := workflows.Save(ctx, wf); err != nil {
		t.Fatalf("save workflow: %v", err)
	}

	run, err := svc.Execute(ctx, wf.ID, engine.TriggerEvent{
		Type:    borg.TriggerCron,
		Payload: map[string]any{"text": "hello"},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if run.Status != borg.RunStatusSucceeded {
		t.Fatalf("status = %s", run.Status)
	}

	saved, err := runs.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("run not recorded: %v", err)
	}
	if saved.WorkflowID != wf.ID {
		t.Errorf("workflow id = %s", saved.WorkflowID)
	}
}

func TestRunServiceGatesAutomatedTriggersOnDrafts(t *testing.T) {
	svc, workflows, _, _ := newTestRunService(t, echoAgent())
	ctx := context.Background()

	wf := retryWorkflow()
	wf.Status = borg.WorkflowDraft
	if err := workflows.Save(ctx, wf); err != nil {
		t.Fatalf("save workflow: %v", err)
	}

	_, err := svc.Execute(ctx, wf.ID, engine.TriggerEvent{Type: borg.TriggerCron})
	if err == nil {
		t.Fatal("cron trigger on draft workflow should be refused")
	}
	if !strings.Contains(err.Error(), "draft") {
		t.Errorf("err = %v", err)
	}

	// Manual execution of a draft is allowed so it can be tested.
	run, err := svc.Execute(ctx, wf.ID, engine.TriggerEvent{
		Type:    borg.TriggerManual,
		Payload: map[string]any{"text": "test"},
	})
	if err != nil {
		t.Fatalf("manual execute on draft: %v", err)
	}
	if run.Status != borg.RunStatusSucceeded {
		t.Errorf("status = %s", run.Status)
	}
}

func TestRunServiceExecuteUnknownWorkflow(t *testing.T) {
	svc, _, _, _ := newTestRunService(t, echoAgent())
	if _, err := svc.Execute(context.Background(), "wf-missing", engine.TriggerEvent{Type: borg.TriggerManual}); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestRunServiceStartReturnsRunID(t *testing.T) {
	svc, workflows, runs, manager := newTestRunService(t, echoAgent())
	ctx := context.Background()

	wf := retryWorkflow()
	if err := workflows.Save(ctx, wf); err != nil {
		t.Fatalf("save workflow: %v", err)
	}

	runID, err := svc.Start(wf.ID, engine.TriggerEvent{
		Type:    borg.TriggerManual,
		Payload: map[string]any{"text": "async"},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run id")
	}

	// The run is registered for streaming before Start returns.
	if _, _, _, _, found := manager.Subscribe(runID, 0); !found {
		t.Fatal("run not registered with run manager")
	}

	// Poll until the background run completes.
	deadline := time.After(2 * time.Second)
	for {
		if run, err := runs.Get(ctx, runID); err == nil {
			if run.Status != borg.RunStatusSucceeded {
				t.Fatalf("status = %s", run.Status)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("run never recorded")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRunServiceCancel(t *testing.T) {
	started := make(chan struct{})
	blocker := agentFunc(func(ctx context.Context, _, _, _ string, _ float64) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})
	svc, workflows, runs, _ := newTestRunService(t, blocker)
	ctx := context.Background()

	wf := retryWorkflow()
	if err := workflows.Save(ctx, wf); err != nil {
		t.Fatalf("save workflow: %v", err)
	}

	runID, err := svc.Start(wf.ID, engine.TriggerEvent{Type: borg.TriggerManual})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("run never started")
	}

	if !svc.Cancel(runID) {
		t.Fatal("cancel reported run as inactive")
	}

	deadline := time.After(2 * time.Second)
	for {
		if run, err := runs.Get(ctx, runID); err == nil && run.Status == borg.RunStatusCancelled {
			break
		}
		select {
		case <-deadline:
			t.Fatal("run never recorded as cancelled")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Cancelling again reports the run as no longer active.
	if svc.Cancel(runID) {
		t.Error("cancel of finished run should report false")
	}
}

func TestRunServiceListClampsLimit(t *testing.T) {
	svc, workflows, _, _ := newTestRunService(t, echoAgent())
	ctx := context.Background()

	wf := retryWorkflow()
	if err := workflows.Save(ctx, wf); err != nil {
		t.Fatalf("save workflow: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Execute(ctx, wf.ID, engine.TriggerEvent{Type: borg.TriggerManual}); err != nil {
			t.Fatalf("execute: %v", err)
		}
	}

	list, total, err := svc.List(ctx, wf.ID, "", -5, -1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(list) != 3 {
		t.Errorf("total=%d len=%d", total, len(list))
	}
}
