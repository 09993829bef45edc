package http

import (
	"encoding/json"
	"net/http"
	"time"

	"sermon-translate-service/internal/app"
	"sermon-translate-service/internal/observability"
	"sermon-translate-service/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the operational HTTP router. Health probes and a
// read-only view of live sessions live here; the streaming surface is
// served by the WebSocket server.
func NewRouter(application *app.Application, manager *session.Manager) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger())

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"startupTime":   application.StartupTime,
				"uptimeSeconds": int64(time.Since(application.StartupTime).Seconds()),
				"sessions":      manager.Len(),
			})
		})

		r.Get("/sessions", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, manager.List())
		})

		r.Get("/sessions/{sessionId}", func(w http.ResponseWriter, req *http.Request) {
			sess, ok := manager.Get(chi.URLParam(req, "sessionId"))
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
				return
			}
			writeJSON(w, http.StatusOK, sess.Stats())
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
