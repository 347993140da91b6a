package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yorukot/apikeys/internal/handlers"
	mw "github.com/yorukot/apikeys/internal/middleware"
	"github.com/yorukot/apikeys/internal/obs"
	"github.com/yorukot/apikeys/internal/services"
	"github.com/yorukot/apikeys/internal/storage"
)

// New wires handlers and middleware around store
func New(store storage.Store, logger *zap.Logger, metrics *obs.Metrics, opts ...services.Option) http.Handler {
	keyService := services.NewKeyService(store, metrics, logger, opts...)
	apiHandler := handlers.NewAPIHandler(keyService, logger)
	healthHandler := handlers.NewHealthHandler(store)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(logger, metrics))
	r.Use(middleware.Recoverer)
	r.Use(mw.CORS)

	r.Get("/", apiHandler.Index)
	r.Post("/create", apiHandler.CreateKey)

	// Protected routes: key in the path plus a bearer token
	r.Route("/api/{"+mw.KeyParam+"}", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(store, logger, metrics))

		r.Get("/details", apiHandler.Details)
	})

	r.Get("/health", healthHandler.Health)
	r.Get("/readyz", healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}
