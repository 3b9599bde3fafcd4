package handler

import (
	"net/http"

	"github.com/S1riyS/happyphone/server/internal/metrics"
)

// RegisterRoutes mounts the API behind auth and the system endpoints without it.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	// System endpoints
	mux.HandleFunc("/health", h.HandleHealthCheck)
	mux.Handle("/metrics", metrics.Handler())

	// API endpoints
	mux.Handle("/api/command", auth(http.HandlerFunc(h.HandleCommand)))
	mux.Handle("/api/downloads", auth(http.HandlerFunc(h.HandleDownloads)))
	mux.Handle("/api/history", auth(http.HandlerFunc(h.HandleHistory)))
	mux.Handle("/api/edit", auth(http.HandlerFunc(h.HandleEdit)))
}
