package api

import (
	"net/http"
	"submerger/api/router/handlers"
	"submerger/core"
	"submerger/logger"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates and configures the API router. All registered paths are
// relative to the /api base path mounted by the server command.
func NewRouter(refresh *core.RefreshService) http.Handler {
	r := chi.NewRouter()

	handlers.RegisterHealthRoutes(r)
	handlers.RegisterSubscriptionRoutes(r, refresh)
	handlers.RegisterRulesRoutes(r)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		logger.Error("API SUB-ROUTER CATCH-ALL: Unhandled route relative to /api: %s %s", req.Method, req.URL.Path)
		http.NotFound(w, req)
	})

	return r
}
