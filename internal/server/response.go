package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse is the JSON body of /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// QueryRequest is the optional JSON body of /execute_sql.
type QueryRequest struct {
	Query string `json:"query"`
}

// WriteJSON encodes v and writes it with the given status code. When v cannot
// be encoded nothing of it is sent; the client gets a 500 instead and the
// encoding error is returned.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		apiErr := NewEncodingError(err)
		body, _ = json.Marshal(ErrorResponse{Detail: apiErr.Detail})
		writeBody(w, apiErr.Status, body)
		return fmt.Errorf("encode response: %w", err)
	}
	return writeBody(w, statusCode, body)
}

func writeBody(w http.ResponseWriter, statusCode int, body []byte) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, err := w.Write(append(body, '\n'))
	return err
}

// WriteError writes err as an ErrorResponse. A nil err is reported as a 500.
func WriteError(w http.ResponseWriter, err *APIError) error {
	if err == nil {
		err = NewInternalError("Unknown error occurred")
	}
	return WriteJSON(w, err.Status, ErrorResponse{Detail: err.Detail})
}
