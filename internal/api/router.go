package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"trackerql/internal/middleware"
)

// RouterConfig configures the middleware stack.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RateLimit          middleware.RateLimitConfig
	Logger             *slog.Logger
}

// NewRouter mounts the handler's routes behind request ids, logging, panic
// recovery, CORS and per-client rate limiting. The rate limiter's background
// sweep stops when ctx is done.
func NewRouter(ctx context.Context, h *Handler, cfg RouterConfig) http.Handler {
	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api/analytics", func(r chi.Router) {
		if cfg.RateLimit.RequestsPerSecond > 0 {
			r.Use(middleware.RateLimiter(ctx, cfg.RateLimit))
		}
		r.Post("/trackedEntities/query", h.QueryTrackedEntities)
		r.Get("/explain/{key}", h.ExplainPlans)
	})

	return r
}
