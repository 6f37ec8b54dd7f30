package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dbviz/dbviz/internal/postgres"
)

// SchemaInspector builds a schema description from a session.
type SchemaInspector interface {
	Inspect(ctx context.Context, session postgres.Session) (*Info, error)
}

var _ SchemaInspector = (*Inspector)(nil)

// Inspector runs the catalog queries in postgres.QueryCountTables and
// postgres.QueryListColumns.
type Inspector struct {
	log zerolog.Logger
}

func NewInspector(log zerolog.Logger) *Inspector {
	return &Inspector{log: log}
}

// Inspect returns the complete schema or an error; it never returns a
// partially filled Info.
func (i *Inspector) Inspect(ctx context.Context, session postgres.Session) (*Info, error) {
	i.log.Info().Msg("Fetching database schema information")

	total, err := countTables(ctx, session)
	if err != nil {
		return nil, err
	}

	rows, err := listColumns(ctx, session)
	if err != nil {
		return nil, err
	}

	info := Assemble(total, rows)
	i.log.Info().
		Int64("total_tables", info.TotalTables).
		Interface("tables", info.Tables).
		Msg("Database schema information")

	return info, nil
}

func countTables(ctx context.Context, session postgres.Session) (int64, error) {
	rows, err := session.QueryContext(ctx, postgres.QueryCountTables)
	if err != nil {
		return 0, fmt.Errorf("count tables: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("count tables: %w", err)
		}
		return 0, errors.New("count tables: query returned no rows")
	}

	var total int64
	if err := rows.Scan(&total); err != nil {
		return 0, fmt.Errorf("scan table count: %w", err)
	}
	return total, rows.Err()
}

func listColumns(ctx context.Context, session postgres.Session) ([]ColumnRow, error) {
	rows, err := session.QueryContext(ctx, postgres.QueryListColumns)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	var result []ColumnRow
	for rows.Next() {
		var r ColumnRow
		if err := rows.Scan(&r.Table, &r.Column, &r.DataType); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	return result, nil
}
