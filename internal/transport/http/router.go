// Package httptransport assembles the HTTP surface. Handlers live with their
// domains; this package only owns routing, middleware order, and the
// unauthenticated operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"incorp/pkg/platform/httputil"
	"incorp/pkg/platform/middleware/auth"
	"incorp/pkg/platform/middleware/ratelimit"
	"incorp/pkg/platform/middleware/requesttime"
	"incorp/pkg/requestcontext"
)

// Registrar is any domain handler that mounts its own routes.
type Registrar interface {
	Register(r chi.Router)
}

// Deps collects everything the router needs.
type Deps struct {
	Validator *auth.Validator
	Logger    *slog.Logger
	Handlers  []Registrar
	// Limiter throttles authenticated traffic when set.
	Limiter ratelimit.Limiter
	// Health reports readiness of backing stores. Nil means always ready.
	Health func(r *http.Request) error
}

// NewRouter wires middleware and mounts every domain handler behind
// authentication. Request time is pinned before auth so even rejected
// requests log a consistent timestamp.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(propagateRequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requesttime.Middleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.Health != nil {
			if err := deps.Health(req); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.Validator, deps.Logger))
		if deps.Limiter != nil {
			r.Use(ratelimit.Middleware(deps.Limiter, deps.Logger))
		}
		for _, h := range deps.Handlers {
			h.Register(r)
		}
	})

	return r
}

// propagateRequestID copies the router's correlation ID into the
// transport-agnostic request context the services read from.
func propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := chimiddleware.GetReqID(ctx); id != "" {
			ctx = requestcontext.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
