// Package server provides the HTTP surface of dbviz: routing, handlers,
// middleware and the client-facing error shape.
package server

import (
	"fmt"
	"net/http"

	"github.com/dbviz/dbviz/internal/postgres"
)

// APIError is the only error shape returned to clients. It is encoded as
// {"detail": "..."} with Status as the HTTP status code.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Detail)
}

// NewAPIError creates an APIError.
func NewAPIError(status int, detail string) *APIError {
	return &APIError{Status: status, Detail: detail}
}

// NewExecutionError reports a failed /execute_sql statement. Caller and
// server faults are both reported as 400.
func NewExecutionError(err error) *APIError {
	return NewAPIError(http.StatusBadRequest, "Error executing query: "+postgres.DescribeError(err))
}

// NewSchemaError reports a failed /database_schema introspection.
func NewSchemaError(err error) *APIError {
	return NewAPIError(http.StatusBadRequest, "Error fetching database schema: "+postgres.DescribeError(err))
}

// NewMissingFieldError reports a required request field that was not supplied.
func NewMissingFieldError(field string) *APIError {
	return NewAPIError(http.StatusUnprocessableEntity, "Missing required field: "+field)
}

// NewInvalidBodyError reports a request body that could not be decoded.
func NewInvalidBodyError(err error) *APIError {
	return NewAPIError(http.StatusUnprocessableEntity, "Invalid JSON request body: "+err.Error())
}

func NewNotFoundError() *APIError {
	return NewAPIError(http.StatusNotFound, "Not Found")
}

func NewMethodNotAllowedError() *APIError {
	return NewAPIError(http.StatusMethodNotAllowed, "Method Not Allowed")
}

func NewRateLimitError() *APIError {
	return NewAPIError(http.StatusTooManyRequests, "rate limit exceeded")
}

// NewDatabaseUnavailableError is used by the health check.
func NewDatabaseUnavailableError(err error) *APIError {
	return NewAPIError(http.StatusServiceUnavailable, "Database unavailable: "+postgres.DescribeError(err))
}

// NewEncodingError reports a result that could not be rendered as JSON, such
// as a NaN or infinite float.
func NewEncodingError(err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, "Error encoding response: "+err.Error())
}

func NewInternalError(detail string) *APIError {
	return NewAPIError(http.StatusInternalServerError, detail)
}
