package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/repository"
)

// SchedulerService manages cron-based workflow scheduling. It wraps
// robfig/cron and integrates retry, concurrency, and run history.
type SchedulerService struct {
	cron          *cron.Cron
	scheduleRepo  repository.ScheduleRepository
	workflowRepo  repository.WorkflowRepository
	retryExecutor *RetryExecutor
	limiter       *ConcurrencyLimiter
	entryMap      map[string]cron.EntryID // schedule ID → cron entry
	mu            sync.RWMutex
}

// NewSchedulerService creates a SchedulerService with all dependencies.
func NewSchedulerService(
	scheduleRepo repository.ScheduleRepository,
	workflowRepo repository.WorkflowRepository,
	retryExecutor *RetryExecutor,
	limiter *ConcurrencyLimiter,
) *SchedulerService {
	return &SchedulerService{
		cron:          cron.New(cron.WithSeconds()),
		scheduleRepo:  scheduleRepo,
		workflowRepo:  workflowRepo,
		retryExecutor: retryExecutor,
		limiter:       limiter,
		entryMap:      make(map[string]cron.EntryID),
	}
}

// Start begins the cron scheduler and rearms existing schedules from the
// repository.
func (s *SchedulerService) Start(ctx context.Context) error {
	schedules, err := s.scheduleRepo.List(ctx, "")
	if err != nil {
		slog.Warn("scheduler: failed to load schedules", "err", err)
	} else {
		for _, sched := range schedules {
			if sched.Enabled {
				if err := s.registerCronJob(sched); err != nil {
					slog.Warn("scheduler: failed to register schedule",
						"id", sched.ID, "err", err)
				}
			}
		}
		slog.Info("scheduler: loaded schedules", "count", len(schedules))
	}

	s.cron.Start()
	slog.Info("scheduler: started")
	return nil
}

// Stop gracefully stops the cron scheduler, waiting for in-flight jobs.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler: stopped")
}

// AddSchedule creates a new schedule and registers its cron job.
func (s *SchedulerService) AddSchedule(ctx context.Context, schedule *borg.Schedule) error {
	cronSched, err := parseCronExpr(schedule.CronExpr, schedule.Timezone)
	if err != nil {
		return err
	}

	now := time.Now()
	schedule.ID = borg.GenerateID("sched")
	schedule.NextRunAt = cronSched.Next(now)
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	if schedule.Timezone == "" {
		schedule.Timezone = "UTC"
	}

	if err := s.scheduleRepo.Save(ctx, schedule); err != nil {
		return err
	}

	if schedule.Enabled {
		return s.registerCronJob(schedule)
	}
	return nil
}

// RemoveSchedule removes a schedule and its cron job.
func (s *SchedulerService) RemoveSchedule(ctx context.Context, id string) error {
	s.unregisterCronJob(id)
	return s.scheduleRepo.Delete(ctx, id)
}

// UpdateSchedule updates a schedule and re-registers its cron job.
func (s *SchedulerService) UpdateSchedule(ctx context.Context, schedule *borg.Schedule) error {
	if _, err := parseCronExpr(schedule.CronExpr, schedule.Timezone); err != nil {
		return err
	}

	s.unregisterCronJob(schedule.ID)

	schedule.UpdatedAt = time.Now()
	if err := s.scheduleRepo.Save(ctx, schedule); err != nil {
		return err
	}

	if schedule.Enabled {
		return s.registerCronJob(schedule)
	}
	return nil
}

// PauseSchedule disables a schedule without deleting it.
func (s *SchedulerService) PauseSchedule(ctx context.Context, id string) error {
	schedule, err := s.scheduleRepo.Get(ctx, id)
	if err != nil {
		return err
	}

	s.unregisterCronJob(id)

	schedule.Enabled = false
	schedule.UpdatedAt = time.Now()
	return s.scheduleRepo.Save(ctx, schedule)
}

// ResumeSchedule re-enables a paused schedule.
func (s *SchedulerService) ResumeSchedule(ctx context.Context, id string) error {
	schedule, err := s.scheduleRepo.Get(ctx, id)
	if err != nil {
		return err
	}

	schedule.Enabled = true
	schedule.UpdatedAt = time.Now()
	if err := s.scheduleRepo.Save(ctx, schedule); err != nil {
		return err
	}
	return s.registerCronJob(schedule)
}

// GetSchedule retrieves a schedule by ID.
func (s *SchedulerService) GetSchedule(ctx context.Context, id string) (*borg.Schedule, error) {
	return s.scheduleRepo.Get(ctx, id)
}

// ListSchedules returns schedules, optionally filtered by workflow.
func (s *SchedulerService) ListSchedules(ctx context.Context, workflowID string) ([]*borg.Schedule, error) {
	return s.scheduleRepo.List(ctx, workflowID)
}

// TriggerNow immediately executes a scheduled run, bypassing the cron
// timer. It takes exactly the same path as a cron firing.
func (s *SchedulerService) TriggerNow(ctx context.Context, id string) error {
	schedule, err := s.scheduleRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	s.executeScheduledRun(schedule)
	return nil
}

// parseCronExpr tries 6-field (with seconds) then 5-field (standard)
// parsing. If timezone is non-empty and non-UTC, it is applied via the
// CRON_TZ= prefix.
func parseCronExpr(expr string, timezone string) (cron.Schedule, error) {
	if timezone != "" && timezone != "UTC" {
		expr = "CRON_TZ=" + timezone + " " + expr
	}
	parser6 := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser6.Parse(expr)
	if err == nil {
		return sched, nil
	}
	parser5 := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser5.Parse(expr)
}

// registerCronJob parses the schedule's cron expression, registers a new
// cron entry, and stores the resulting EntryID in entryMap.
func (s *SchedulerService) registerCronJob(schedule *borg.Schedule) error {
	cronSched, err := parseCronExpr(schedule.CronExpr, schedule.Timezone)
	if err != nil {
		return err
	}

	entryID := s.cron.Schedule(cronSched, cron.FuncJob(func() {
		s.executeScheduledRun(schedule)
	}))

	s.mu.Lock()
	s.entryMap[schedule.ID] = entryID
	s.mu.Unlock()

	slog.Info("scheduler: registered cron job",
		"id", schedule.ID, "workflow", schedule.WorkflowID, "cron", schedule.CronExpr)
	return nil
}

func (s *SchedulerService) unregisterCronJob(scheduleID string) {
	s.mu.Lock()
	if entryID, ok := s.entryMap[scheduleID]; ok {
		s.cron.Remove(entryID)
		delete(s.entryMap, scheduleID)
	}
	s.mu.Unlock()
}
