package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/borgframework/borg/internal/borg"
)

// SaveWorkflow inserts or replaces a workflow document.
func (d *DB) SaveWorkflow(ctx context.Context, wf *borg.Workflow) error {
	doc, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("marshal workflow: %w", err)
	}

	_, err = d.Pool.ExecContext(ctx,
		`INSERT INTO workflows (id, name, status, document, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status,
		     document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		wf.ID, wf.Name, string(wf.Status), doc, wf.CreatedAt, wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow document by id.
func (d *DB) GetWorkflow(ctx context.Context, id string) (*borg.Workflow, error) {
	var doc []byte
	err := d.Pool.QueryRowContext(ctx,
		`SELECT document FROM workflows WHERE id = $1`, id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, borg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}

	var wf borg.Workflow
	if err := json.Unmarshal(doc, &wf); err != nil {
		return nil, fmt.Errorf("unmarshal workflow: %w", err)
	}
	return &wf, nil
}

// ListWorkflows returns all workflow documents, most recently updated first.
func (d *DB) ListWorkflows(ctx context.Context) ([]*borg.Workflow, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT document FROM workflows ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var result []*borg.Workflow
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		var wf borg.Workflow
		if err := json.Unmarshal(doc, &wf); err != nil {
			return nil, fmt.Errorf("unmarshal workflow: %w", err)
		}
		result = append(result, &wf)
	}
	return result, rows.Err()
}

// DeleteWorkflow removes a workflow by id.
func (d *DB) DeleteWorkflow(ctx context.Context, id string) error {
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return borg.ErrNotFound
	}
	return nil
}
