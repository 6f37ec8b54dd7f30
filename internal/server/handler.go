package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dbviz/dbviz/internal/postgres"
	"github.com/dbviz/dbviz/internal/query"
	"github.com/dbviz/dbviz/internal/schema"
	"github.com/dbviz/dbviz/internal/version"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators a Handler needs.
type Dependencies struct {
	Sessions  postgres.SessionProvider
	Executor  query.QueryExecutor
	Inspector schema.SchemaInspector
	Pinger    Pinger
	API       *openapi3.T
	Logger    zerolog.Logger
}

type Handler struct {
	sessions  postgres.SessionProvider
	executor  query.QueryExecutor
	inspector schema.SchemaInspector
	pinger    Pinger
	api       *openapi3.T
	log       zerolog.Logger
}

func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		sessions:  deps.Sessions,
		executor:  deps.Executor,
		inspector: deps.Inspector,
		pinger:    deps.Pinger,
		api:       deps.API,
		log:       deps.Logger,
	}
}

// RegisterRoutes mounts every endpoint on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/execute_sql", h.HandleExecuteSQL)
	r.Get("/database_schema", h.HandleDatabaseSchema)
	r.Get("/openapi.json", h.HandleOpenAPI)
	r.Get("/healthz", h.HandleHealth)
}

// HandleExecuteSQL runs the statement given in the "query" URL parameter
// (or the "query" field of a JSON body) and returns its result set.
func (h *Handler) HandleExecuteSQL(w http.ResponseWriter, r *http.Request) {
	log := h.requestLogger(r)

	sql, apiErr := readQuery(r)
	if apiErr != nil {
		log.Error().Str("detail", apiErr.Detail).Msg("Rejected SQL request")
		WriteError(w, apiErr)
		return
	}

	var result *query.Result
	err := h.withSession(r.Context(), log, func(session postgres.Session) error {
		var err error
		result, err = h.executor.Execute(r.Context(), session, sql)
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("sqlstate", postgres.SQLState(err)).Msg("Error executing SQL query")
		WriteError(w, NewExecutionError(err))
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

// HandleDatabaseSchema returns the table and column listing of the database.
func (h *Handler) HandleDatabaseSchema(w http.ResponseWriter, r *http.Request) {
	log := h.requestLogger(r)

	var info *schema.Info
	err := h.withSession(r.Context(), log, func(session postgres.Session) error {
		var err error
		info, err = h.inspector.Inspect(r.Context(), session)
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("sqlstate", postgres.SQLState(err)).Msg("Error fetching database schema")
		WriteError(w, NewSchemaError(err))
		return
	}

	if err := WriteJSON(w, http.StatusOK, info); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

// HandleOpenAPI serves the OpenAPI description of the service.
func (h *Handler) HandleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if h.api == nil {
		WriteError(w, NewNotFoundError())
		return
	}
	if err := WriteJSON(w, http.StatusOK, h.api); err != nil {
		log := h.requestLogger(r)
		log.Error().Err(err).Msg("Failed to write OpenAPI document")
	}
}

// HandleHealth reports 200 when the database answers a ping.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			log := h.requestLogger(r)
			log.Error().Err(err).Msg("Health check failed")
			WriteError(w, NewDatabaseUnavailableError(err))
			return
		}
	}
	WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: version.Get().Version})
}

// withSession acquires a session, runs fn and releases the session on every
// path.
func (h *Handler) withSession(ctx context.Context, log zerolog.Logger, fn func(postgres.Session) error) error {
	session, err := h.sessions.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to release database session")
		}
	}()
	return fn(session)
}

func (h *Handler) requestLogger(r *http.Request) zerolog.Logger {
	if id := RequestIDFromContext(r.Context()); id != "" {
		return h.log.With().Str("request_id", id).Logger()
	}
	return h.log
}

// readQuery takes the statement from the "query" URL parameter, used as given
// even when empty, or else from the JSON body.
func readQuery(r *http.Request) (string, *APIError) {
	if params := r.URL.Query(); params.Has("query") {
		return params.Get("query"), nil
	}

	if r.Body != nil {
		defer r.Body.Close()
		var req QueryRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		switch {
		case errors.Is(err, io.EOF):
		case err != nil:
			return "", NewInvalidBodyError(err)
		case req.Query != "":
			return req.Query, nil
		}
	}

	return "", NewMissingFieldError("query")
}
