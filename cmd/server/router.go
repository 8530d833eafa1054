package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blastline/blastline/internal/handler"
	"github.com/blastline/blastline/internal/middleware"
)

func setupRouter(h *handler.Handler, webhookToken string) http.Handler {
	r := chi.NewRouter()

	h.Routes(r)

	// Provider callbacks carry their own bearer token, separate from any
	// client-facing auth.
	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(webhookToken))
		r.Post("/webhook/provider", h.ProviderWebhook)
	})

	return r
}
