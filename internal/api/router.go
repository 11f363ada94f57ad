package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/recordservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *recordservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/kinds", h.ListKinds)
	r.Get("/agent", h.Agent)

	// Anchor introspection.
	r.Get("/anchors/types", h.AnchorTypes)
	r.Get("/anchors/types/addresses", h.AnchorTypeAddresses)
	r.Get("/anchors/{type}/tags", h.AnchorTags)
	r.Get("/anchors/{type}/addresses", h.AnchorAddresses)

	// Records.
	r.Route("/records/{kind}", func(r chi.Router) {
		r.Get("/", h.ListRecords)
		r.Post("/", h.CreateRecord)
		r.Get("/{id}", h.ReadRecord)
		r.Put("/{id}", h.UpdateRecord)
		r.Delete("/{id}", h.DeleteRecord)
		r.Post("/{id}/rebase", h.RebaseRecord)
		r.Get("/{id}/versions", h.RecordVersions)
	})

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
