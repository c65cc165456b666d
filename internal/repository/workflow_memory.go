package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/repository/memory"
)

// MemoryWorkflowRepository keeps workflow documents in memory, keyed by id.
type MemoryWorkflowRepository struct {
	store *memory.Store[*borg.Workflow]
}

func NewMemoryWorkflowRepository() *MemoryWorkflowRepository {
	return &MemoryWorkflowRepository{
		store: memory.New(func(wf *borg.Workflow) string { return wf.ID }),
	}
}

func (r *MemoryWorkflowRepository) Save(ctx context.Context, wf *borg.Workflow) error {
	return r.store.Set(ctx, wf)
}

func (r *MemoryWorkflowRepository) Get(ctx context.Context, id string) (*borg.Workflow, error) {
	wf, err := r.store.Get(ctx, id)
	if errors.Is(err, memory.ErrNotFound) {
		return nil, ErrNotFound
	}
	return wf, err
}

func (r *MemoryWorkflowRepository) List(ctx context.Context) ([]*borg.Workflow, error) {
	all, err := r.store.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})
	return all, nil
}

func (r *MemoryWorkflowRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); errors.Is(err, memory.ErrNotFound) {
		return ErrNotFound
	}
	return nil
}
