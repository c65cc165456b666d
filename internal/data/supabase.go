package data

import (
	"context"
	"database/sql"
	"strings"

	"github.com/borgframework/borg/internal/borg"
)

// SupabaseSource runs read-only SQL against a Supabase Postgres
// database over the standard wire protocol.
type SupabaseSource struct {
	db *sql.DB
}

func NewSupabaseSource(db *sql.DB) *SupabaseSource {
	return &SupabaseSource{db: db}
}

func (s *SupabaseSource) Name() string { return "supabase" }

func (s *SupabaseSource) Read(ctx context.Context, query string, _ any) (any, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "supabase source requires a query", nil)
	}
	// Data nodes read; mutations belong to the database action.
	if !strings.HasPrefix(strings.ToUpper(query), "SELECT") {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "supabase source accepts SELECT queries only", nil)
	}
	if s.db == nil {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "supabase source has no connection configured", nil)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, borg.NewAdapterError(borg.ErrProviderUnavailable, "supabase query failed", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// scanRows converts a result set into []map[string]any keyed by column
// name, the shape condition expressions and agents consume.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		record := make(map[string]any, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			record[col] = v
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
