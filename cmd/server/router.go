package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskflow/internal/api"
	apiMiddleware "github.com/phrazzld/taskflow/internal/api/middleware"
	"github.com/phrazzld/taskflow/internal/api/shared"
	"github.com/phrazzld/taskflow/internal/platform/queue"
	"github.com/phrazzld/taskflow/internal/redact"
)

// healthCheckTimeout bounds each dependency probe of /health.
const healthCheckTimeout = 2 * time.Second

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(middleware.Recoverer)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	rateLimiter := apiMiddleware.NewRateLimiter(app.config.RateLimit, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)

	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(rateLimiter.Middleware)
		taskHandler.Routes(r)
	})

	r.Get("/health", app.handleHealth)

	return r
}

// healthResponse reports the state of each dependency.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (app *application) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Checks: map[string]string{}}

	check := func(name string, probe func(ctx context.Context) error) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := probe(ctx); err != nil {
			app.logger.Warn("health check failed", "dependency", name, redact.ErrorAttr(err))
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			return
		}
		resp.Checks[name] = "ok"
	}

	check("database", app.db.PingContext)
	if app.redis != nil {
		check("redis", func(ctx context.Context) error { return queue.Ping(ctx, app.redis) })
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	shared.RespondWithJSON(w, r, status, resp)
}
