package repository

import (
	"context"
	"log/slog"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/db"
)

// PersistentWorkflowRepository wraps the in-memory repository with a
// PostgreSQL backend. Writes go to both stores (DB failure is logged
// but non-fatal). Reads try memory first, falling back to the database.
type PersistentWorkflowRepository struct {
	mem *MemoryWorkflowRepository
	db  *db.DB
}

func NewPersistentWorkflowRepository(mem *MemoryWorkflowRepository, database *db.DB) *PersistentWorkflowRepository {
	return &PersistentWorkflowRepository{mem: mem, db: database}
}

func (r *PersistentWorkflowRepository) Save(ctx context.Context, wf *borg.Workflow) error {
	_ = r.mem.Save(ctx, wf)
	if err := r.db.SaveWorkflow(ctx, wf); err != nil {
		slog.Warn("db save workflow failed, in-memory only", "workflow_id", wf.ID, "err", err)
	}
	return nil
}

func (r *PersistentWorkflowRepository) Get(ctx context.Context, id string) (*borg.Workflow, error) {
	wf, err := r.mem.Get(ctx, id)
	if err == nil {
		return wf, nil
	}

	wf, dbErr := r.db.GetWorkflow(ctx, id)
	if dbErr != nil {
		return nil, err // preserve the original ErrNotFound
	}

	// Cache in memory for future lookups.
	_ = r.mem.Save(ctx, wf)
	return wf, nil
}

func (r *PersistentWorkflowRepository) List(ctx context.Context) ([]*borg.Workflow, error) {
	rows, err := r.db.ListWorkflows(ctx)
	if err == nil {
		return rows, nil
	}
	slog.Warn("db list workflows failed, falling back to in-memory", "err", err)
	return r.mem.List(ctx)
}

func (r *PersistentWorkflowRepository) Delete(ctx context.Context, id string) error {
	memErr := r.mem.Delete(ctx, id)
	dbErr := r.db.DeleteWorkflow(ctx, id)
	if memErr != nil && dbErr != nil {
		return ErrNotFound
	}
	return nil
}
