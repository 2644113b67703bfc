package routes

import (
	"net/http"

	"github.com/zatekoja/placesearch/internal/api/handlers"
	"github.com/zatekoja/placesearch/internal/api/middleware"
	"github.com/zatekoja/placesearch/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	placesHandler  *handlers.PlacesHandler
	sessionHandler *handlers.SessionHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	placesHandler *handlers.PlacesHandler,
	sessionHandler *handlers.SessionHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		placesHandler:  placesHandler,
		sessionHandler: sessionHandler,
		allowedOrigins: allowedOrigins,
		metrics:        metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Places endpoints
	r.mux.HandleFunc("GET /api/places/search", r.placesHandler.Search)
	r.mux.HandleFunc("GET /api/places/autocomplete", r.placesHandler.Autocomplete)
	r.mux.HandleFunc("GET /api/places/{id}", r.placesHandler.Details)

	// Search session endpoints
	r.mux.HandleFunc("POST /api/sessions", r.sessionHandler.CreateSession)
	r.mux.HandleFunc("GET /api/sessions/{id}", r.sessionHandler.GetSession)
	r.mux.HandleFunc("PUT /api/sessions/{id}/query", r.sessionHandler.SetQuery)
	r.mux.HandleFunc("GET /api/sessions/{id}/results", r.sessionHandler.GetResults)
	r.mux.HandleFunc("GET /api/sessions/{id}/stream", r.sessionHandler.Stream)
	r.mux.HandleFunc("POST /api/sessions/{id}/select", r.sessionHandler.Select)
	r.mux.HandleFunc("GET /api/sessions/{id}/selection", r.sessionHandler.GetSelection)
	r.mux.HandleFunc("DELETE /api/sessions/{id}", r.sessionHandler.DeleteSession)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so preflight requests short-circuit early
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
