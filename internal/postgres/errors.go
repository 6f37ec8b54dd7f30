package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// DescribeError renders err as the text reported to API clients. Server
// errors from either driver are expanded with their detail, hint and
// position; anything else is reported as err.Error().
func DescribeError(err error) string {
	if err == nil {
		return ""
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return describe(pqErr.Severity, pqErr.Message, string(pqErr.Code), pqErr.Detail, pqErr.Hint, pqErr.Position)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		position := ""
		if pgErr.Position > 0 {
			position = fmt.Sprint(pgErr.Position)
		}
		return describe(pgErr.Severity, pgErr.Message, pgErr.Code, pgErr.Detail, pgErr.Hint, position)
	}

	return err.Error()
}

// SQLState returns the SQLSTATE code carried by err, or "" when err did not
// come from the server.
func SQLState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func describe(severity, message, code, detail, hint, position string) string {
	var b strings.Builder
	if severity != "" {
		b.WriteString(severity)
		b.WriteString(": ")
	}
	b.WriteString(message)
	if code != "" {
		fmt.Fprintf(&b, " (SQLSTATE %s)", code)
	}
	if detail != "" {
		fmt.Fprintf(&b, " | Detail: %s", detail)
	}
	if hint != "" {
		fmt.Fprintf(&b, " | Hint: %s", hint)
	}
	if position != "" {
		fmt.Fprintf(&b, " | Position: %s", position)
	}
	return b.String()
}
