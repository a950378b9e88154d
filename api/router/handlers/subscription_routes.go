package handlers

import (
	"submerger/core"

	"github.com/go-chi/chi/v5"
)

// refreshService is set during route registration and shared by the refresh
// and ad-hoc merge handlers.
var refreshService *core.RefreshService

func RegisterSubscriptionRoutes(r chi.Router, refresh *core.RefreshService) {
	refreshService = refresh

	r.Route("/subscription", func(subRouter chi.Router) {
		subRouter.Post("/", addSubscription)
		subRouter.Get("/list", listSubscriptions)
		subRouter.Get("/result", getMergedResult)
		subRouter.Post("/refresh", refreshSubscriptions)
		subRouter.Get("/merge", mergeSubscriptionsDirect)
		subRouter.Put("/{subID}", updateSubscription)
		subRouter.Delete("/{subID}", deleteSubscription)
	})
}
