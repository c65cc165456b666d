package actions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/lib/pq"

	"github.com/borgframework/borg/internal/borg"
)

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DatabaseAction inserts the upstream payload as a JSONB row.
// Parameters: table (required), column (defaults to "payload").
type DatabaseAction struct {
	db *sql.DB
}

func NewDatabaseAction(db *sql.DB) *DatabaseAction {
	return &DatabaseAction{db: db}
}

func (a *DatabaseAction) Type() string { return "database" }

func (a *DatabaseAction) Execute(ctx context.Context, params map[string]any, input any) (any, error) {
	table := paramString(params, "table")
	if table == "" || !identPattern.MatchString(table) {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration,
			fmt.Sprintf("database action requires a valid 'table' parameter, got %q", table), nil)
	}
	column := paramString(params, "column")
	if column == "" {
		column = "payload"
	}
	if !identPattern.MatchString(column) {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration,
			fmt.Sprintf("invalid column name %q", column), nil)
	}
	if a.db == nil {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "database action has no connection configured", nil)
	}

	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES ($1)",
		pq.QuoteIdentifier(table), pq.QuoteIdentifier(column))
	res, err := a.db.ExecContext(ctx, query, data)
	if err != nil {
		return nil, borg.NewAdapterError(borg.ErrProviderUnavailable,
			fmt.Sprintf("insert into %s failed", table), err)
	}
	rows, _ := res.RowsAffected()
	return map[string]any{"status": "inserted", "rows": rows}, nil
}
