// Package services composes the engine, repositories, and adapters into
// the run, scheduling, and reporting operations the API exposes.
package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/borgframework/borg/internal/borg"
)

// ConcurrencyLimiter controls how many runs can execute simultaneously.
// It uses channel-based counting semaphores at two levels: global and
// per-workflow.
type ConcurrencyLimiter struct {
	global      chan struct{}
	perWorkflow map[string]chan struct{}
	mu          sync.Mutex
	limits      borg.ConcurrencyLimits
	activeCount atomic.Int64
}

// NewConcurrencyLimiter creates a limiter with the given limits.
func NewConcurrencyLimiter(limits borg.ConcurrencyLimits) *ConcurrencyLimiter {
	defaults := borg.DefaultConcurrencyLimits()
	if limits.GlobalMax <= 0 {
		limits.GlobalMax = defaults.GlobalMax
	}
	if limits.PerWorkflow <= 0 {
		limits.PerWorkflow = defaults.PerWorkflow
	}

	return &ConcurrencyLimiter{
		global:      make(chan struct{}, limits.GlobalMax),
		perWorkflow: make(map[string]chan struct{}),
		limits:      limits,
	}
}

// Acquire blocks until both global and per-workflow slots are available,
// or returns an error if the context is cancelled.
func (c *ConcurrencyLimiter) Acquire(ctx context.Context, workflowID string) error {
	select {
	case c.global <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	wfCh := c.getOrCreateWorkflowChan(workflowID)
	select {
	case wfCh <- struct{}{}:
		c.activeCount.Add(1)
		return nil
	case <-ctx.Done():
		// Give back the global slot we already hold.
		<-c.global
		return ctx.Err()
	}
}

// Release returns both the global and per-workflow slots.
func (c *ConcurrencyLimiter) Release(workflowID string) {
	c.activeCount.Add(-1)

	c.mu.Lock()
	if ch, ok := c.perWorkflow[workflowID]; ok {
		select {
		case <-ch:
		default:
		}
	}
	c.mu.Unlock()

	select {
	case <-c.global:
	default:
	}
}

// ConcurrencyStats reports current usage.
type ConcurrencyStats struct {
	ActiveRuns  int `json:"active_runs"`
	GlobalMax   int `json:"global_max"`
	PerWorkflow int `json:"per_workflow"`
}

// Stats returns the current concurrency statistics.
func (c *ConcurrencyLimiter) Stats() ConcurrencyStats {
	return ConcurrencyStats{
		ActiveRuns:  int(c.activeCount.Load()),
		GlobalMax:   c.limits.GlobalMax,
		PerWorkflow: c.limits.PerWorkflow,
	}
}

func (c *ConcurrencyLimiter) getOrCreateWorkflowChan(workflowID string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.perWorkflow[workflowID]
	if !ok {
		ch = make(chan struct{}, c.limits.PerWorkflow)
		c.perWorkflow[workflowID] = ch
	}
	return ch
}
