package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/borgframework/borg/internal/borg"
)

// maxRunRecords bounds in-memory run history; the oldest records are
// evicted first.
const maxRunRecords = 1000

// MemoryRunRepository stores run records in memory with FIFO eviction.
type MemoryRunRepository struct {
	mu      sync.RWMutex
	records map[string]*borg.Run
	order   []string // insertion order for FIFO eviction
}

func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{records: make(map[string]*borg.Run)}
}

func (r *MemoryRunRepository) Save(_ context.Context, run *borg.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[run.ID]; !exists {
		if len(r.order) >= maxRunRecords {
			oldest := r.order[0]
			r.order = r.order[1:]
			delete(r.records, oldest)
		}
		r.order = append(r.order, run.ID)
	}
	r.records[run.ID] = run
	return nil
}

func (r *MemoryRunRepository) Get(_ context.Context, id string) (*borg.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return run, nil
}

func (r *MemoryRunRepository) List(_ context.Context, workflowID, status string, limit, offset int) ([]*borg.Run, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var filtered []*borg.Run
	for _, run := range r.records {
		if workflowID != "" && run.WorkflowID != workflowID {
			continue
		}
		if status != "" && string(run.Status) != status {
			continue
		}
		filtered = append(filtered, run)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].StartedAt.After(filtered[j].StartedAt)
	})

	total := len(filtered)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}
