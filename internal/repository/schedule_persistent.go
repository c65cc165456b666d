package repository

import (
	"context"
	"log/slog"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/db"
)

// PersistentScheduleRepository mirrors schedules to PostgreSQL so they
// survive restarts and get rearmed on startup.
type PersistentScheduleRepository struct {
	mem *MemoryScheduleRepository
	db  *db.DB
}

func NewPersistentScheduleRepository(mem *MemoryScheduleRepository, database *db.DB) *PersistentScheduleRepository {
	return &PersistentScheduleRepository{mem: mem, db: database}
}

func (r *PersistentScheduleRepository) Save(ctx context.Context, s *borg.Schedule) error {
	_ = r.mem.Save(ctx, s)
	if err := r.db.SaveSchedule(ctx, s); err != nil {
		slog.Warn("db save schedule failed, in-memory only", "schedule_id", s.ID, "err", err)
	}
	return nil
}

func (r *PersistentScheduleRepository) Get(ctx context.Context, id string) (*borg.Schedule, error) {
	s, err := r.mem.Get(ctx, id)
	if err == nil {
		return s, nil
	}
	s, dbErr := r.db.GetSchedule(ctx, id)
	if dbErr != nil {
		return nil, err
	}
	_ = r.mem.Save(ctx, s)
	return s, nil
}

func (r *PersistentScheduleRepository) List(ctx context.Context, workflowID string) ([]*borg.Schedule, error) {
	rows, err := r.db.ListSchedules(ctx, workflowID)
	if err == nil {
		return rows, nil
	}
	slog.Warn("db list schedules failed, falling back to in-memory", "err", err)
	return r.mem.List(ctx, workflowID)
}

func (r *PersistentScheduleRepository) Delete(ctx context.Context, id string) error {
	memErr := r.mem.Delete(ctx, id)
	dbErr := r.db.DeleteSchedule(ctx, id)
	if memErr != nil && dbErr != nil {
		return ErrNotFound
	}
	return nil
}
