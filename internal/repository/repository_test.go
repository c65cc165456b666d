package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/borgframework/borg/internal/borg"
)

func TestMemoryWorkflowRepository(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryWorkflowRepository()

	wf := &borg.Workflow{ID: "wf-1", Name: "Digest", Status: borg.WorkflowDraft, UpdatedAt: time.Now()}
	if err := r.Save(ctx, wf); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := r.Get(ctx, "wf-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Digest" {
		t.Errorf("name = %q", got.Name)
	}

	if _, err := r.Get(ctx, "wf-missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := r.Delete(ctx, "wf-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.Delete(ctx, "wf-1"); err != ErrNotFound {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryWorkflowRepositoryListOrder(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryWorkflowRepository()

	base := time.Now()
	for i := 0; i < 3; i++ {
		r.Save(ctx, &borg.Workflow{
			ID:        fmt.Sprintf("wf-%d", i),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	list, err := r.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ID != "wf-2" {
		t.Errorf("expected newest first, got %v", list)
	}
}

func TestMemoryRunRepositoryEviction(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRunRepository()

	for i := 0; i < maxRunRecords+10; i++ {
		r.Save(ctx, &borg.Run{
			ID:         fmt.Sprintf("run-%d", i),
			WorkflowID: "wf-1",
			StartedAt:  time.Now().Add(time.Duration(i) * time.Millisecond),
		})
	}

	// The oldest ten must have been evicted.
	for i := 0; i < 10; i++ {
		if _, err := r.Get(ctx, fmt.Sprintf("run-%d", i)); err != ErrNotFound {
			t.Errorf("run-%d: expected eviction, got %v", i, err)
		}
	}
	if _, err := r.Get(ctx, fmt.Sprintf("run-%d", maxRunRecords+9)); err != nil {
		t.Errorf("newest run missing: %v", err)
	}
}

func TestMemoryRunRepositorySaveTwiceNoEvict(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRunRepository()

	run := &borg.Run{ID: "run-1", Status: borg.RunStatusRunning, StartedAt: time.Now()}
	r.Save(ctx, run)
	run.Status = borg.RunStatusSucceeded
	r.Save(ctx, run) // finishing update must not consume an eviction slot

	if len(r.order) != 1 {
		t.Fatalf("order length = %d, want 1", len(r.order))
	}
	got, _ := r.Get(ctx, "run-1")
	if got.Status != borg.RunStatusSucceeded {
		t.Errorf("status = %s", got.Status)
	}
}

func TestMemoryRunRepositoryListFilters(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRunRepository()

	base := time.Now()
	r.Save(ctx, &borg.Run{ID: "r1", WorkflowID: "wf-a", Status: borg.RunStatusSucceeded, StartedAt: base})
	r.Save(ctx, &borg.Run{ID: "r2", WorkflowID: "wf-a", Status: borg.RunStatusFailed, StartedAt: base.Add(time.Second)})
	r.Save(ctx, &borg.Run{ID: "r3", WorkflowID: "wf-b", Status: borg.RunStatusSucceeded, StartedAt: base.Add(2 * time.Second)})

	runs, total, err := r.List(ctx, "wf-a", "", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || runs[0].ID != "r2" {
		t.Errorf("wf-a runs = %v (total %d)", runs, total)
	}

	runs, total, _ = r.List(ctx, "", "succeeded", 10, 0)
	if total != 2 {
		t.Errorf("succeeded total = %d", total)
	}

	runs, total, _ = r.List(ctx, "", "", 2, 2)
	if total != 3 || len(runs) != 1 {
		t.Errorf("pagination: total=%d len=%d", total, len(runs))
	}
}

func TestMemoryTriggerRepositoryByPath(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryTriggerRepository()

	r.Save(ctx, &borg.TriggerBinding{ID: "trg-1", WorkflowID: "wf-1", Path: "gh-push", Enabled: true})

	got, err := r.GetByPath(ctx, "gh-push")
	if err != nil {
		t.Fatalf("get by path: %v", err)
	}
	if got.ID != "trg-1" {
		t.Errorf("id = %q", got.ID)
	}

	if _, err := r.GetByPath(ctx, "nope"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryScheduleRepositoryListByWorkflow(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryScheduleRepository()

	base := time.Now()
	r.Save(ctx, &borg.Schedule{ID: "s1", WorkflowID: "wf-a", CreatedAt: base})
	r.Save(ctx, &borg.Schedule{ID: "s2", WorkflowID: "wf-b", CreatedAt: base.Add(time.Second)})
	r.Save(ctx, &borg.Schedule{ID: "s3", WorkflowID: "wf-a", CreatedAt: base.Add(2 * time.Second)})

	list, err := r.List(ctx, "wf-a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "s1" || list[1].ID != "s3" {
		t.Errorf("list = %v", list)
	}

	all, _ := r.List(ctx, "")
	if len(all) != 3 {
		t.Errorf("all = %d", len(all))
	}
}
