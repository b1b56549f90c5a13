package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mindbreaker/mindbreaker/internal/api/handlers"
	"github.com/mindbreaker/mindbreaker/internal/api/middleware"
	"github.com/mindbreaker/mindbreaker/internal/auth"
)

// Router wraps the HTTP multiplexer with middleware and handlers
type Router struct {
	mux           *http.ServeMux
	app           *App
	limiter       *middleware.RateLimiter
	validations   *handlers.ValidationHandler
	profiles      *handlers.ProfileHandler
	catalog       *handlers.CatalogHandler
	notifications *handlers.NotificationHandler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(app *App) *Router {
	r := &Router{
		mux: http.NewServeMux(),
		app: app,
	}

	// Initialize handlers
	r.validations = handlers.NewValidationHandler(app.Validation)
	r.profiles = handlers.NewProfileHandler(app.Profiles)
	r.catalog = handlers.NewCatalogHandler(app.Catalog)
	r.notifications = handlers.NewNotificationHandler(app.Notifications)

	// Rate limiting is skipped in debug mode for easier development
	if !app.Config.Debug && app.Config.RateLimit > 0 {
		r.limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			Rate:  app.Config.RateLimit,
			Burst: app.Config.RateBurst,
		})
	}

	r.registerRoutes()
	return r
}

// Handler returns the mux wrapped in the middleware chain
func (r *Router) Handler() http.Handler {
	return r.buildMiddlewareChain(r.mux)
}

// Close releases the rate limiter
func (r *Router) Close() error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Close()
}

func (r *Router) registerRoutes() {
	// Health
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.HandleFunc("GET /ready", r.handleReady)

	// Validation workflow (admin)
	r.mux.HandleFunc("GET /api/v1/validations", r.authenticate(r.validations.Pending))
	r.mux.HandleFunc("PATCH /api/v1/validations/{type}/{id}", r.authenticate(r.validations.Patch))
	r.mux.HandleFunc("POST /api/v1/validations/{type}/{id}", r.authenticate(r.validations.Post))
	r.mux.HandleFunc("DELETE /api/v1/validations/{type}/{id}", r.authenticate(r.validations.Delete))

	// Profile and progress
	r.mux.HandleFunc("GET /api/v1/profile", r.authenticate(r.profiles.Get))
	r.mux.HandleFunc("POST /api/v1/quests/{id}/complete", r.authenticate(r.profiles.Complete))
	r.mux.HandleFunc("DELETE /api/v1/quests/{id}/complete", r.authenticate(r.profiles.Undo))
	r.mux.HandleFunc("GET /api/v1/notifications", r.authenticate(r.notifications.List))

	// Catalog (public)
	r.mux.HandleFunc("GET /api/v1/quests", r.catalog.Quests)
	r.mux.HandleFunc("GET /api/v1/expeditions", r.catalog.Expeditions)
	r.mux.HandleFunc("GET /api/v1/organizations", r.catalog.Organizations)
	r.mux.HandleFunc("GET /api/v1/search", r.catalog.Search)
	r.mux.HandleFunc("GET /api/v1/similar/{type}", r.catalog.Similar)
}

func (r *Router) buildMiddlewareChain(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last applied = first executed)
	handler = middleware.Recovery(handler)
	handler = middleware.Logger(handler)

	if r.limiter != nil {
		handler = r.limiter.Middleware(handler)
	}

	handler = middleware.RequestID(handler)
	handler = middleware.CORS(r.app.Config.CORSOrigin)(handler)

	return handler
}

// authenticate resolves the caller's capability once per request.
// Unauthenticated callers continue as guests; each operation decides
// whether a guest may proceed.
func (r *Router) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		capability, err := r.app.Guard.Resolve(req.Context(), auth.TokenFromRequest(req))
		if err != nil {
			handlers.WriteError(w, req, err)
			return
		}

		next(w, req.WithContext(auth.WithCapability(req.Context(), capability)))
	}
}

// Health check handlers
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	r.jsonResponse(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleReady(w http.ResponseWriter, req *http.Request) {
	// Check database connectivity
	if err := r.app.ping(req.Context()); err != nil {
		slog.Error("database health check failed",
			"error", err,
			"request_id", middleware.GetRequestID(req.Context()),
		)
		r.jsonResponse(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"checks": map[string]string{
				"database": "unhealthy",
			},
		})
		return
	}

	r.jsonResponse(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": map[string]string{
			"database": "healthy",
		},
	})
}

func (r *Router) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
