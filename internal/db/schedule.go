package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/borgframework/borg/internal/borg"
)

// SaveSchedule inserts or replaces a schedule record.
func (d *DB) SaveSchedule(ctx context.Context, s *borg.Schedule) error {
	record, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}

	_, err = d.Pool.ExecContext(ctx,
		`INSERT INTO schedules (id, workflow_id, enabled, record, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET workflow_id = EXCLUDED.workflow_id,
		     enabled = EXCLUDED.enabled, record = EXCLUDED.record, updated_at = EXCLUDED.updated_at`,
		s.ID, s.WorkflowID, s.Enabled, record, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}

// GetSchedule retrieves a schedule by id.
func (d *DB) GetSchedule(ctx context.Context, id string) (*borg.Schedule, error) {
	var record []byte
	err := d.Pool.QueryRowContext(ctx,
		`SELECT record FROM schedules WHERE id = $1`, id,
	).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, borg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	var s borg.Schedule
	if err := json.Unmarshal(record, &s); err != nil {
		return nil, fmt.Errorf("unmarshal schedule: %w", err)
	}
	return &s, nil
}

// ListSchedules returns all schedules, optionally filtered by workflow.
func (d *DB) ListSchedules(ctx context.Context, workflowID string) ([]*borg.Schedule, error) {
	var rows *sql.Rows
	var err error
	if workflowID != "" {
		rows, err = d.Pool.QueryContext(ctx,
			`SELECT record FROM schedules WHERE workflow_id = $1 ORDER BY created_at`, workflowID)
	} else {
		rows, err = d.Pool.QueryContext(ctx,
			`SELECT record FROM schedules ORDER BY created_at`)
	}
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var result []*borg.Schedule
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		var s borg.Schedule
		if err := json.Unmarshal(record, &s); err != nil {
			return nil, fmt.Errorf("unmarshal schedule: %w", err)
		}
		result = append(result, &s)
	}
	return result, rows.Err()
}

// DeleteSchedule removes a schedule by id.
func (d *DB) DeleteSchedule(ctx context.Context, id string) error {
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return borg.ErrNotFound
	}
	return nil
}
