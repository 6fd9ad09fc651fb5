package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Effective records.
	r.Get("/characters", h.ListCharacters)
	r.Get("/characters/{id}", h.GetCharacter)
	r.Put("/characters/{id}", h.EditCharacter)
	r.Delete("/characters/{id}/patch", h.ResetCharacter)
	r.Get("/patches", h.ListPatches)
	r.Post("/validate", h.Validate)

	// Interactive edit sessions.
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Route("/{sid}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)
			r.Post("/load", h.LoadSession)
			r.Post("/edit", h.BeginEdit)
			r.Put("/fields/{field}", h.UpdateField)
			r.Post("/cancel", h.CancelEdit)
			r.Post("/save", h.SaveSession)
			r.Post("/reset", h.ResetSession)
		})
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
