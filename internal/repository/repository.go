// Package repository defines storage interfaces for the workflow,
// run, schedule, and trigger entities, with in-memory and write-through
// persistent implementations.
package repository

import (
	"context"

	"github.com/borgframework/borg/internal/borg"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = borg.ErrNotFound

// WorkflowRepository abstracts workflow persistence so callers don't
// need to know whether storage is in-memory, PostgreSQL, or a mix.
type WorkflowRepository interface {
	Save(ctx context.Context, wf *borg.Workflow) error
	Get(ctx context.Context, id string) (*borg.Workflow, error)
	List(ctx context.Context) ([]*borg.Workflow, error)
	Delete(ctx context.Context, id string) error
}

// RunRepository stores execution run records.
type RunRepository interface {
	Save(ctx context.Context, run *borg.Run) error
	Get(ctx context.Context, id string) (*borg.Run, error)
	// List returns runs newest first, optionally filtered by workflow
	// and status, along with the total matching count.
	List(ctx context.Context, workflowID, status string, limit, offset int) ([]*borg.Run, int, error)
}

// ScheduleRepository stores cron schedule records.
type ScheduleRepository interface {
	Save(ctx context.Context, s *borg.Schedule) error
	Get(ctx context.Context, id string) (*borg.Schedule, error)
	List(ctx context.Context, workflowID string) ([]*borg.Schedule, error)
	Delete(ctx context.Context, id string) error
}

// TriggerRepository stores webhook/event trigger bindings.
type TriggerRepository interface {
	Save(ctx context.Context, t *borg.TriggerBinding) error
	Get(ctx context.Context, id string) (*borg.TriggerBinding, error)
	GetByPath(ctx context.Context, path string) (*borg.TriggerBinding, error)
	List(ctx context.Context, workflowID string) ([]*borg.TriggerBinding, error)
	Delete(ctx context.Context, id string) error
}
