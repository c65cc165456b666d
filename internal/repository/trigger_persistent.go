package repository

import (
	"context"
	"log/slog"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/db"
)

// PersistentTriggerRepository mirrors trigger bindings to PostgreSQL so
// inbound webhook paths survive restarts.
type PersistentTriggerRepository struct {
	mem *MemoryTriggerRepository
	db  *db.DB
}

func NewPersistentTriggerRepository(mem *MemoryTriggerRepository, database *db.DB) *PersistentTriggerRepository {
	return &PersistentTriggerRepository{mem: mem, db: database}
}

func (r *PersistentTriggerRepository) Save(ctx context.Context, t *borg.TriggerBinding) error {
	_ = r.mem.Save(ctx, t)
	if err := r.db.SaveTrigger(ctx, t); err != nil {
		slog.Warn("db save trigger failed, in-memory only", "trigger_id", t.ID, "err", err)
	}
	return nil
}

func (r *PersistentTriggerRepository) Get(ctx context.Context, id string) (*borg.TriggerBinding, error) {
	t, err := r.mem.Get(ctx, id)
	if err == nil {
		return t, nil
	}
	t, dbErr := r.db.GetTrigger(ctx, id)
	if dbErr != nil {
		return nil, err
	}
	_ = r.mem.Save(ctx, t)
	return t, nil
}

func (r *PersistentTriggerRepository) GetByPath(ctx context.Context, path string) (*borg.TriggerBinding, error) {
	t, err := r.mem.GetByPath(ctx, path)
	if err == nil {
		return t, nil
	}
	t, dbErr := r.db.GetTriggerByPath(ctx, path)
	if dbErr != nil {
		return nil, err
	}
	_ = r.mem.Save(ctx, t)
	return t, nil
}

func (r *PersistentTriggerRepository) List(ctx context.Context, workflowID string) ([]*borg.TriggerBinding, error) {
	rows, err := r.db.ListTriggers(ctx, workflowID)
	if err == nil {
		return rows, nil
	}
	slog.Warn("db list triggers failed, falling back to in-memory", "err", err)
	return r.mem.List(ctx, workflowID)
}

func (r *PersistentTriggerRepository) Delete(ctx context.Context, id string) error {
	memErr := r.mem.Delete(ctx, id)
	dbErr := r.db.DeleteTrigger(ctx, id)
	if memErr != nil && dbErr != nil {
		return ErrNotFound
	}
	return nil
}
