// Package handlers wires HTTP routing and API handlers.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"

	"github.com/handsomefox/media-tracker/internal/auth"
	"github.com/handsomefox/media-tracker/internal/env"
	"github.com/handsomefox/media-tracker/internal/tracker"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc         *tracker.Service
	tokens      auth.TokenService
	health      Pinger
	log         *slog.Logger
	env         env.Environment
	corsOrigins []string
}

type Config struct {
	Service     *tracker.Service
	Tokens      auth.TokenService
	Health      Pinger
	Logger      *slog.Logger
	Env         env.Environment
	CORSOrigins []string
}

func New(cfg *Config) (*Handler, error) {
	if cfg.Service == nil {
		return nil, errors.New("tracker service is required")
	}
	if len(cfg.Tokens.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{
		svc:         cfg.Service,
		tokens:      cfg.Tokens,
		health:      cfg.Health,
		log:         log,
		env:         cfg.Env,
		corsOrigins: origins,
	}, nil
}

// Router returns the complete HTTP handler with logging and CORS applied.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(h.log, &httplog.Options{
		Level:         slog.LevelInfo,
		Schema:        httplog.SchemaECS.Concise(!h.env.IsProduction()),
		RecoverPanics: true,
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Method(http.MethodGet, "/healthz", Adapt(h.getHealth))

	r.Route("/api/anime", func(r chi.Router) {
		h.registerScope(r, tracker.ScopeAnime)

		r.Method(http.MethodGet, "/recommendations", Adapt(h.getRecommendations))
		r.Method(http.MethodGet, "/upcoming", Adapt(h.getUpcoming))
		r.Method(http.MethodGet, "/top", Adapt(h.getTop))
	})
	r.Route("/api/media", func(r chi.Router) {
		h.registerScope(r, tracker.ScopeMedia)
	})
}

func (h *Handler) registerScope(r chi.Router, scope tracker.Scope) {
	r.Group(func(r chi.Router) {
		r.Use(h.MiddlewareOptionalAuth)

		r.Method(http.MethodGet, "/search", h.scoped(scope, h.getSearch))
	})

	r.Group(func(r chi.Router) {
		r.Use(h.MiddlewareRequireAuth)

		r.Method(http.MethodGet, "/suggestions", h.scoped(scope, h.getSuggestions))
		r.Method(http.MethodGet, "/stats", h.scoped(scope, h.getStats))
		r.Method(http.MethodPost, "/bulk-status", h.scoped(scope, h.postBulkStatus))

		r.Route("/list", func(r chi.Router) {
			r.Method(http.MethodGet, "/", h.scoped(scope, h.getList))
			r.Method(http.MethodPost, "/", h.scoped(scope, h.postList))
			r.Method(http.MethodDelete, "/", h.scoped(scope, h.deleteList))

			r.Route("/{id}", func(r chi.Router) {
				r.Method(http.MethodPut, "/", h.scoped(scope, h.putListItem))
				r.Method(http.MethodDelete, "/", h.scoped(scope, h.deleteListItem))
				r.Method(http.MethodPut, "/progress", h.scoped(scope, h.putProgress))
				r.Method(http.MethodPost, "/progress/step", h.scoped(scope, h.postProgressStep))
			})
		})
	})
}

type scopedHandler func(w http.ResponseWriter, r *http.Request, scope tracker.Scope) error

func (h *Handler) scoped(scope tracker.Scope, fn scopedHandler) http.Handler {
	return Adapt(func(w http.ResponseWriter, r *http.Request) error {
		return fn(w, r, scope)
	})
}

func (h *Handler) getHealth(w http.ResponseWriter, r *http.Request) error {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.log.ErrorContext(r.Context(), "Health check failed", slog.Any("err", err))
			return &Error{Status: http.StatusServiceUnavailable, Message: "database unavailable"}
		}
	}
	writeJSON(w, http.StatusOK, &healthResponse{Status: "ok"})
	return nil
}
