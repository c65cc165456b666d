package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/engine"
	"github.com/borgframework/borg/internal/repository"
)

// RunService owns the execution lifecycle: it gates workflows by status,
// enforces concurrency limits, drives the engine, and records runs.
type RunService struct {
	workflows repository.WorkflowRepository
	runs      repository.RunRepository
	engine    *engine.Engine
	limiter   *ConcurrencyLimiter
	manager   *RunManager

	mu     sync.Mutex
	active map[string]context.CancelFunc // run id → cancel
}

// NewRunService wires the execution path together.
func NewRunService(
	workflows repository.WorkflowRepository,
	runs repository.RunRepository,
	eng *engine.Engine,
	limiter *ConcurrencyLimiter,
	manager *RunManager,
) *RunService {
	return &RunService{
		workflows: workflows,
		runs:      runs,
		engine:    eng,
		limiter:   limiter,
		manager:   manager,
		active:    make(map[string]context.CancelFunc),
	}
}

// canFire decides whether a trigger type may execute a workflow in its
// current lifecycle state. Manual execution is always allowed so drafts
// can be tested; automated triggers require an active workflow.
func canFire(status borg.WorkflowStatus, trigger borg.TriggerType) error {
	if trigger == borg.TriggerManual {
		return nil
	}
	if status != borg.WorkflowActive {
		return fmt.Errorf("workflow is %s; %s triggers require an active workflow", status, trigger)
	}
	return nil
}

// Execute runs a workflow synchronously and returns the finished run.
func (s *RunService) Execute(ctx context.Context, workflowID string, ev engine.TriggerEvent) (*borg.Run, error) {
	wf, err := s.workflows.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if err := canFire(wf.Status, ev.Type); err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx, workflowID); err != nil {
		return nil, err
	}
	defer s.limiter.Release(workflowID)

	run, execErr := s.engine.Execute(ctx, wf, ev)
	if run != nil {
		if saveErr := s.runs.Save(ctx, run); saveErr != nil {
			slog.Warn("failed to save run record", "run_id", run.ID, "err", saveErr)
		}
	}
	return run, execErr
}

// Start launches a workflow run in the background and returns its run id
// immediately. The run is cancellable via Cancel until it finishes.
func (s *RunService) Start(workflowID string, ev engine.TriggerEvent) (string, error) {
	wf, err := s.workflows.Get(context.Background(), workflowID)
	if err != nil {
		return "", err
	}
	if err := canFire(wf.Status, ev.Type); err != nil {
		return "", err
	}

	ev.RunID = borg.GenerateID("run")
	s.manager.Register(ev.RunID)

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.active[ev.RunID] = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.active, ev.RunID)
			s.mu.Unlock()
		}()

		if err := s.limiter.Acquire(runCtx, workflowID); err != nil {
			s.manager.Fail(ev.RunID, "concurrency limit wait cancelled")
			return
		}
		defer s.limiter.Release(workflowID)

		run, execErr := s.engine.Execute(runCtx, wf, ev)
		if run != nil {
			if saveErr := s.runs.Save(context.Background(), run); saveErr != nil {
				slog.Warn("failed to save run record", "run_id", run.ID, "err", saveErr)
			}
		}
		if execErr != nil && run == nil {
			// Validation refusals never produce a run record; surface
			// the failure to any stream subscribers.
			s.manager.Fail(ev.RunID, execErr.Error())
		}
	}()

	return ev.RunID, nil
}

// Cancel requests cancellation of an in-flight run. It reports whether
// the run was active.
func (s *RunService) Cancel(runID string) bool {
	s.mu.Lock()
	cancel, ok := s.active[runID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// CleanupOrphans marks runs still recorded as running as failed. Called
// at boot: any run in that state belongs to a previous process and will
// never finish.
func (s *RunService) CleanupOrphans(ctx context.Context) int {
	runs, _, err := s.runs.List(ctx, "", string(borg.RunStatusRunning), 200, 0)
	if err != nil {
		slog.Warn("orphan cleanup: failed to list runs", "err", err)
		return 0
	}

	cleaned := 0
	for _, run := range runs {
		msg := "interrupted by server restart"
		run.Status = borg.RunStatusFailed
		run.Error = &msg
		now := time.Now()
		run.FinishedAt = &now
		if err := s.runs.Save(ctx, run); err != nil {
			slog.Warn("orphan cleanup: failed to update run", "run_id", run.ID, "err", err)
			continue
		}
		cleaned++
	}
	if cleaned > 0 {
		slog.Info("orphan cleanup: marked interrupted runs as failed", "count", cleaned)
	}
	return cleaned
}

// Get returns a run record by id.
func (s *RunService) Get(ctx context.Context, id string) (*borg.Run, error) {
	return s.runs.Get(ctx, id)
}

// List returns run records newest first with the total count.
func (s *RunService) List(ctx context.Context, workflowID, status string, limit, offset int) ([]*borg.Run, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.runs.List(ctx, workflowID, status, limit, offset)
}
