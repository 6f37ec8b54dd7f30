package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/dbviz/dbviz/internal/config"
)

// NewRouter wires the middleware stack in front of the handler's routes.
func NewRouter(cfg config.ServerConfig, handler *Handler, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	if cfg.RateLimitRPS > 0 {
		r.Use(RateLimiter(RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, NewNotFoundError())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, NewMethodNotAllowedError())
	})

	handler.RegisterRoutes(r)
	return r
}
