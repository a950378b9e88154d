package handlers

import (
	"github.com/go-chi/chi/v5"
)

func RegisterRulesRoutes(r chi.Router) {
	r.Route("/rules", func(subRouter chi.Router) {
		subRouter.Get("/", getCustomRules)
		subRouter.Post("/update", updateCustomRules)
	})
}
