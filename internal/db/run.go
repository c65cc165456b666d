package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/borgframework/borg/internal/borg"
)

// SaveRun inserts or replaces a run record. The engine finishes a run
// before it is saved again, so last write wins is safe here.
func (d *DB) SaveRun(ctx context.Context, r *borg.Run) error {
	record, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	_, err = d.Pool.ExecContext(ctx,
		`INSERT INTO runs (id, workflow_id, trigger_type, trigger_ref, status, record, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, record = EXCLUDED.record,
		     finished_at = EXCLUDED.finished_at`,
		r.ID, r.WorkflowID, string(r.TriggerType), r.TriggerRef, string(r.Status),
		record, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// GetRun retrieves a run record by id.
func (d *DB) GetRun(ctx context.Context, id string) (*borg.Run, error) {
	var record []byte
	err := d.Pool.QueryRowContext(ctx,
		`SELECT record FROM runs WHERE id = $1`, id,
	).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, borg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	var r borg.Run
	if err := json.Unmarshal(record, &r); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &r, nil
}

// ListRuns returns runs newest first, optionally filtered by workflow.
// It reports the total matching count alongside the page.
func (d *DB) ListRuns(ctx context.Context, workflowID string, limit, offset int) ([]*borg.Run, int, error) {
	var total int
	var rows *sql.Rows
	var err error

	if workflowID != "" {
		if err = d.Pool.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM runs WHERE workflow_id = $1`, workflowID,
		).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count runs: %w", err)
		}
		rows, err = d.Pool.QueryContext(ctx,
			`SELECT record FROM runs WHERE workflow_id = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
			workflowID, limit, offset,
		)
	} else {
		if err = d.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count runs: %w", err)
		}
		rows, err = d.Pool.QueryContext(ctx,
			`SELECT record FROM runs ORDER BY started_at DESC LIMIT $1 OFFSET $2`,
			limit, offset,
		)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var result []*borg.Run
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		var r borg.Run
		if err := json.Unmarshal(record, &r); err != nil {
			return nil, 0, fmt.Errorf("unmarshal run: %w", err)
		}
		result = append(result, &r)
	}
	return result, total, rows.Err()
}

// DeleteRunsBefore removes finished runs older than the newest keep
// records, returning how many were deleted.
func (d *DB) DeleteRunsBefore(ctx context.Context, keep int) (int64, error) {
	res, err := d.Pool.ExecContext(ctx,
		`DELETE FROM runs WHERE id IN (
		     SELECT id FROM runs WHERE status != 'running'
		     ORDER BY started_at DESC OFFSET $1
		 )`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
