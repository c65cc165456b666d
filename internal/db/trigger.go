package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/borgframework/borg/internal/borg"
)

// SaveTrigger inserts or replaces a trigger binding.
func (d *DB) SaveTrigger(ctx context.Context, t *borg.TriggerBinding) error {
	record, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trigger: %w", err)
	}

	_, err = d.Pool.ExecContext(ctx,
		`INSERT INTO triggers (id, workflow_id, path, enabled, record, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET workflow_id = EXCLUDED.workflow_id,
		     path = EXCLUDED.path, enabled = EXCLUDED.enabled, record = EXCLUDED.record`,
		t.ID, t.WorkflowID, t.Path, t.Enabled, record, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save trigger: %w", err)
	}
	return nil
}

// GetTrigger retrieves a trigger binding by id.
func (d *DB) GetTrigger(ctx context.Context, id string) (*borg.TriggerBinding, error) {
	return d.scanOneTrigger(d.Pool.QueryRowContext(ctx,
		`SELECT record FROM triggers WHERE id = $1`, id))
}

// GetTriggerByPath retrieves a trigger binding by its public hook path.
func (d *DB) GetTriggerByPath(ctx context.Context, path string) (*borg.TriggerBinding, error) {
	return d.scanOneTrigger(d.Pool.QueryRowContext(ctx,
		`SELECT record FROM triggers WHERE path = $1`, path))
}

func (d *DB) scanOneTrigger(row *sql.Row) (*borg.TriggerBinding, error) {
	var record []byte
	err := row.Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, borg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trigger: %w", err)
	}

	var t borg.TriggerBinding
	if err := json.Unmarshal(record, &t); err != nil {
		return nil, fmt.Errorf("unmarshal trigger: %w", err)
	}
	return &t, nil
}

// ListTriggers returns all trigger bindings, optionally filtered by workflow.
func (d *DB) ListTriggers(ctx context.Context, workflowID string) ([]*borg.TriggerBinding, error) {
	var rows *sql.Rows
	var err error
	if workflowID != "" {
		rows, err = d.Pool.QueryContext(ctx,
			`SELECT record FROM triggers WHERE workflow_id = $1 ORDER BY created_at`, workflowID)
	} else {
		rows, err = d.Pool.QueryContext(ctx,
			`SELECT record FROM triggers ORDER BY created_at`)
	}
	if err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	defer rows.Close()

	var result []*borg.TriggerBinding
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		var t borg.TriggerBinding
		if err := json.Unmarshal(record, &t); err != nil {
			return nil, fmt.Errorf("unmarshal trigger: %w", err)
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}

// DeleteTrigger removes a trigger binding by id.
func (d *DB) DeleteTrigger(ctx context.Context, id string) error {
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM triggers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete trigger: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return borg.ErrNotFound
	}
	return nil
}
