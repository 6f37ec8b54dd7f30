// Package query executes raw SQL statements and serializes their result sets.
package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dbviz/dbviz/internal/postgres"
)

// Executor submits statements verbatim. Any statement type is accepted.
type Executor struct {
	log zerolog.Logger
}

func NewExecutor(log zerolog.Logger) *Executor {
	return &Executor{log: log}
}

// Execute runs sql on session and returns every row it produced. On failure
// no partial result is returned.
func (e *Executor) Execute(ctx context.Context, session postgres.Session, sql string) (*Result, error) {
	e.log.Info().Str("query", sql).Msg("Executing raw SQL query")

	rows, err := session.QueryContext(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	result, err := parseRows(rows)
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Strs("columns", result.Columns).
		Interface("data", result.Data).
		Int("row_count", len(result.Data)).
		Msg("Query results")

	return result, nil
}

func parseRows(rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	if columns == nil {
		columns = []string{}
	}

	result := &Result{
		Columns: columns,
		Data:    []Row{},
	}

	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		result.Data = append(result.Data, NewRow(columns, values))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	return result, nil
}
