package repository

import (
	"context"
	"log/slog"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/db"
)

// PersistentRunRepository mirrors run records to PostgreSQL. The
// in-memory store keeps recent history hot; the database holds the
// durable record.
type PersistentRunRepository struct {
	mem *MemoryRunRepository
	db  *db.DB
}

func NewPersistentRunRepository(mem *MemoryRunRepository, database *db.DB) *PersistentRunRepository {
	return &PersistentRunRepository{mem: mem, db: database}
}

func (r *PersistentRunRepository) Save(ctx context.Context, run *borg.Run) error {
	_ = r.mem.Save(ctx, run)
	if err := r.db.SaveRun(ctx, run); err != nil {
		slog.Warn("db save run failed, in-memory only", "run_id", run.ID, "err", err)
	}
	return nil
}

func (r *PersistentRunRepository) Get(ctx context.Context, id string) (*borg.Run, error) {
	run, err := r.mem.Get(ctx, id)
	if err == nil {
		return run, nil
	}

	run, dbErr := r.db.GetRun(ctx, id)
	if dbErr != nil {
		return nil, err
	}
	_ = r.mem.Save(ctx, run)
	return run, nil
}

func (r *PersistentRunRepository) List(ctx context.Context, workflowID, status string, limit, offset int) ([]*borg.Run, int, error) {
	// Status filtering happens in memory; the DB listing covers the
	// common unfiltered and per-workflow queries.
	if status == "" {
		runs, total, err := r.db.ListRuns(ctx, workflowID, limit, offset)
		if err == nil {
			return runs, total, nil
		}
		slog.Warn("db list runs failed, falling back to in-memory", "err", err)
	}
	return r.mem.List(ctx, workflowID, status, limit, offset)
}
