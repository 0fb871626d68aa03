package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

// NewRouter serves the health check and, when webhook is non-nil, the
// Telegram webhook at /api/webhook.
func NewRouter(webhook http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", HealthHandler)
	if webhook != nil {
		r.Method(http.MethodPost, "/api/webhook", webhook)
	}
	return r
}
