package services

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/engine"
	"github.com/borgframework/borg/internal/repository"
)

// RetryExecutor wraps engine execution with configurable retry and
// backoff. Only failures the adapter taxonomy marks retryable (rate
// limits, timeouts, unavailable providers) are retried; configuration
// and rejection errors fail immediately.
type RetryExecutor struct {
	engine *engine.Engine
	runs   repository.RunRepository
}

// NewRetryExecutor creates a RetryExecutor.
func NewRetryExecutor(eng *engine.Engine, runs repository.RunRepository) *RetryExecutor {
	return &RetryExecutor{engine: eng, runs: runs}
}

// ExecuteWithRetry runs a workflow, retrying failed attempts per the
// policy. Each attempt produces its own run record; retries reference
// the first attempt through RetryOf. The returned run is the final
// attempt's record.
func (r *RetryExecutor) ExecuteWithRetry(ctx context.Context, wf *borg.Workflow, ev engine.TriggerEvent, policy borg.RetryPolicy) (*borg.Run, error) {
	var firstRunID string
	var run *borg.Run
	var err error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		attemptEv := ev
		if attempt > 0 {
			// Each retry is a fresh run record with a fresh id.
			attemptEv.RunID = ""
		}

		run, err = r.engine.Execute(ctx, wf, attemptEv)
		if run != nil {
			if attempt == 0 {
				firstRunID = run.ID
			} else {
				run.RetryOf = &firstRunID
				run.RetryCount = attempt
			}
			if saveErr := r.runs.Save(ctx, run); saveErr != nil {
				slog.Warn("retry: failed to save run record", "run_id", run.ID, "err", saveErr)
			}
		}
		if err == nil {
			return run, nil
		}

		if !borg.IsRetryable(err) || attempt >= policy.MaxRetries || ctx.Err() != nil {
			return run, err
		}

		sleepWithBackoff(ctx, policy, attempt)
	}
	return run, err
}

// sleepWithBackoff waits for the backoff duration, respecting context
// cancellation.
func sleepWithBackoff(ctx context.Context, policy borg.RetryPolicy, attempt int) {
	delay := calculateBackoff(policy, attempt)
	slog.Info("retry: backing off", "attempt", attempt+1, "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// calculateBackoff computes the delay for a given attempt using
// exponential backoff capped at MaxDelay.
func calculateBackoff(policy borg.RetryPolicy, attempt int) time.Duration {
	delay := float64(policy.InitialDelay) * math.Pow(policy.BackoffFactor, float64(attempt))
	if time.Duration(delay) > policy.MaxDelay {
		return policy.MaxDelay
	}
	return time.Duration(delay)
}
