package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/zettelnav/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Index content.
	r.Put("/content", h.UpdateContent)
	r.Get("/corpus", h.GetCorpus)
	r.Put("/corpus", h.SaveCorpus)

	// Navigation.
	r.Post("/jump", h.Jump)
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/{id}", h.GetNote)
	r.Get("/backlinks", h.Backlinks)

	// Search and graph.
	r.Get("/search", h.Search)
	r.Get("/graph", h.Graph)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
