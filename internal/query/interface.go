package query

import (
	"context"

	"github.com/dbviz/dbviz/internal/postgres"
)

// QueryExecutor runs a raw SQL statement on a session.
type QueryExecutor interface {
	Execute(ctx context.Context, session postgres.Session, sql string) (*Result, error)
}

var _ QueryExecutor = (*Executor)(nil)
