package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/repository/memory"
)

// MemoryScheduleRepository keeps schedules in memory, keyed by id.
type MemoryScheduleRepository struct {
	store *memory.Store[*borg.Schedule]
}

func NewMemoryScheduleRepository() *MemoryScheduleRepository {
	return &MemoryScheduleRepository{
		store: memory.New(func(s *borg.Schedule) string { return s.ID }),
	}
}

func (r *MemoryScheduleRepository) Save(ctx context.Context, s *borg.Schedule) error {
	return r.store.Set(ctx, s)
}

func (r *MemoryScheduleRepository) Get(ctx context.Context, id string) (*borg.Schedule, error) {
	s, err := r.store.Get(ctx, id)
	if errors.Is(err, memory.ErrNotFound) {
		return nil, ErrNotFound
	}
	return s, err
}

func (r *MemoryScheduleRepository) List(ctx context.Context, workflowID string) ([]*borg.Schedule, error) {
	out, err := r.store.Filter(ctx, func(s *borg.Schedule) bool {
		return workflowID == "" || s.WorkflowID == workflowID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryScheduleRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); errors.Is(err, memory.ErrNotFound) {
		return ErrNotFound
	}
	return nil
}
