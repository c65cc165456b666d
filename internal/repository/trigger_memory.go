package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/repository/memory"
)

// MemoryTriggerRepository keeps trigger bindings in memory, keyed by id,
// with a path index for inbound hook lookups.
type MemoryTriggerRepository struct {
	store *memory.Store[*borg.TriggerBinding]
}

func NewMemoryTriggerRepository() *MemoryTriggerRepository {
	return &MemoryTriggerRepository{
		store: memory.New(func(t *borg.TriggerBinding) string { return t.ID }),
	}
}

func (r *MemoryTriggerRepository) Save(ctx context.Context, t *borg.TriggerBinding) error {
	return r.store.Set(ctx, t)
}

func (r *MemoryTriggerRepository) Get(ctx context.Context, id string) (*borg.TriggerBinding, error) {
	t, err := r.store.Get(ctx, id)
	if errors.Is(err, memory.ErrNotFound) {
		return nil, ErrNotFound
	}
	return t, err
}

func (r *MemoryTriggerRepository) GetByPath(ctx context.Context, path string) (*borg.TriggerBinding, error) {
	matches, err := r.store.Filter(ctx, func(t *borg.TriggerBinding) bool {
		return t.Path == path
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return matches[0], nil
}

func (r *MemoryTriggerRepository) List(ctx context.Context, workflowID string) ([]*borg.TriggerBinding, error) {
	out, err := r.store.Filter(ctx, func(t *borg.TriggerBinding) bool {
		return workflowID == "" || t.WorkflowID == workflowID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryTriggerRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); errors.Is(err, memory.ErrNotFound) {
		return ErrNotFound
	}
	return nil
}
