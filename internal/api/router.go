package api

import (
	"log/slog"
	"net/http"

	"github.com/sydlexius/liner/internal/api/middleware"
	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/auth"
	"github.com/sydlexius/liner/internal/enrich"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	ArtistService *artist.Service
	Runner        enrich.BatchRunner
	Verifier      *auth.Verifier
	// TriggerLimiter throttles the batch trigger per client. Nil disables it.
	TriggerLimiter *middleware.RateLimiter
	Logger         *slog.Logger
	BasePath       string
}

// Router sets up all HTTP routes for the application.
type Router struct {
	artistService  *artist.Service
	runner         enrich.BatchRunner
	verifier       *auth.Verifier
	triggerLimiter *middleware.RateLimiter
	logger         *slog.Logger
	basePath       string
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		artistService:  deps.ArtistService,
		runner:         deps.Runner,
		verifier:       deps.Verifier,
		triggerLimiter: deps.TriggerLimiter,
		logger:         deps.Logger.With(slog.String("component", "api")),
		basePath:       deps.BasePath,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	tokenMw := middleware.RequireToken(r.verifier)
	mux := http.NewServeMux()
	bp := r.basePath

	// Public routes (no auth)
	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)

	// Protected routes (trigger token required)
	trigger := tokenMw(http.HandlerFunc(r.handleTriggerEnrich))
	if r.triggerLimiter != nil {
		trigger = r.triggerLimiter.Middleware(trigger)
	}
	mux.Handle("POST "+bp+"/api/v1/enrich/{field}", trigger)
	mux.HandleFunc("GET "+bp+"/api/v1/runs", wrapAuth(r.handleListRuns, tokenMw))
	mux.HandleFunc("GET "+bp+"/api/v1/pending", wrapAuth(r.handlePending, tokenMw))
	mux.HandleFunc("GET "+bp+"/api/v1/artists", wrapAuth(r.handleListArtists, tokenMw))
	mux.HandleFunc("GET "+bp+"/api/v1/artists/{id}", wrapAuth(r.handleGetArtist, tokenMw))

	return middleware.Logging(r.logger)(middleware.SecurityHeaders(mux))
}

// wrapAuth wraps a handler function with auth middleware.
func wrapAuth(fn http.HandlerFunc, authMw func(http.Handler) http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authMw(fn).ServeHTTP(w, r)
	}
}
