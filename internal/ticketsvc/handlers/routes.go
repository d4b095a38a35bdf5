package handlers

import (
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)
		r.Get("/config", h.ConfigHandler)
		r.Post("/session", h.SessionHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/ws", h.HandleWebSocket)
			r.Post("/pages/{socketId}/upload", h.UploadHandler)
			r.Get("/pages/{socketId}/scans", h.ScansHandler)
			r.Get("/balance/{year}/{month}", h.BalanceHandler)
			r.Get("/options", h.OptionsHandler)
			r.Get("/submissions/{key}", h.SubmissionsHandler)
		})
	})
}
