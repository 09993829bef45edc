// Package ws exposes the service's streaming surface: one WebSocket
// endpoint where a speaker pushes audio, and one where listeners
// receive the live and committed transcript lines for a session.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"sermon-translate-service/internal/observability/logging"
	"sermon-translate-service/internal/session"
)

const (
	startTimeout  = 10 * time.Second
	readTimeout   = 60 * time.Second
	writeTimeout  = 10 * time.Second
	pingInterval  = 30 * time.Second
	maxFrameBytes = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Congregation clients connect from arbitrary origins.
		return true
	},
}

// Server hosts the speaker and listener WebSocket endpoints.
type Server struct {
	server  *http.Server
	manager *session.Manager
	logger  zerolog.Logger
}

// NewServer wires the streaming endpoints onto addr.
func NewServer(addr string, manager *session.Manager) *Server {
	s := &Server{
		manager: manager,
		logger:  logging.WithComponent("ws"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/v1/stream", s.handleSpeaker)
	r.Get("/v1/listen/{sessionId}", s.handleListener)

	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Handler exposes the route tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("websocket server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("websocket server failed")
		}
	}()
}

// Shutdown stops accepting connections and waits for handlers to end.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
