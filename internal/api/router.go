// Package api exposes the pipeline over HTTP using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the API under /api plus a liveness probe. broker may be
// nil, in which case /api/events is not served.
func NewRouter(h *Handler, broker *Broker) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", h.PostMessage)
		r.Get("/status", h.GetStatus)
		r.Get("/card", h.GetCard)
		r.Get("/history", h.GetHistory)
		if broker != nil {
			r.Get("/events", broker.ServeHTTP)
		}
	})
	return r
}
