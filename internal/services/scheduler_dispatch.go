package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/engine"
)

// executeScheduledRun is called by cron when a schedule fires. It gates
// on workflow status, acquires a concurrency slot, and executes with the
// schedule's retry policy.
func (s *SchedulerService) executeScheduledRun(schedule *borg.Schedule) {
	ctx := context.Background()

	slog.Info("scheduler: executing scheduled run",
		"schedule", schedule.ID, "workflow", schedule.WorkflowID)

	wf, err := s.workflowRepo.Get(ctx, schedule.WorkflowID)
	if err != nil {
		slog.Error("scheduler: workflow not found",
			"schedule", schedule.ID, "workflow", schedule.WorkflowID, "err", err)
		return
	}
	if err := canFire(wf.Status, borg.TriggerCron); err != nil {
		slog.Warn("scheduler: skipping run", "schedule", schedule.ID, "err", err)
		s.touchSchedule(ctx, schedule)
		return
	}

	if err := s.limiter.Acquire(ctx, schedule.WorkflowID); err != nil {
		slog.Warn("scheduler: concurrency limit reached, skipping",
			"schedule", schedule.ID, "err", err)
		return
	}
	defer s.limiter.Release(schedule.WorkflowID)

	policy := borg.DefaultRetryPolicy()
	if schedule.RetryPolicy != nil {
		policy = *schedule.RetryPolicy
	}

	run, execErr := s.retryExecutor.ExecuteWithRetry(ctx, wf, engine.TriggerEvent{
		NodeID:  schedule.NodeID,
		Type:    borg.TriggerCron,
		Ref:     schedule.ID,
		Payload: schedule.Payload,
	}, policy)
	if execErr != nil {
		slog.Error("scheduler: run failed",
			"schedule", schedule.ID, "err", execErr)
	} else if run != nil {
		slog.Info("scheduler: run completed",
			"schedule", schedule.ID, "run", run.ID, "status", run.Status)
	}

	s.touchSchedule(ctx, schedule)
}

// touchSchedule updates LastRunAt/NextRunAt after a firing.
func (s *SchedulerService) touchSchedule(ctx context.Context, schedule *borg.Schedule) {
	now := time.Now()
	schedule.LastRunAt = &now
	if cronSched, parseErr := parseCronExpr(schedule.CronExpr, schedule.Timezone); parseErr == nil {
		schedule.NextRunAt = cronSched.Next(now)
	}
	schedule.UpdatedAt = now
	if err := s.scheduleRepo.Save(ctx, schedule); err != nil {
		slog.Warn("scheduler: failed to update schedule after run", "err", err)
	}
}
