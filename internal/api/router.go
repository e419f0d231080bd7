package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mdorg/internal/convert"
	"github.com/starford/mdorg/internal/ledger"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// db may be nil when the ledger is disabled; ledger routes then answer 503.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(conv *convert.Converter, db ledger.Store, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(conv, db)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Conversion.
	r.Post("/convert", h.Convert)

	// Identifier index.
	r.Get("/ids", h.ListIDs)
	r.Get("/ids/{title}", h.GetID)

	// Ledger.
	r.Get("/status", h.Status)
	r.Get("/conversions", h.ListConversions)
	r.Get("/links/unresolved", h.UnresolvedLinks)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
