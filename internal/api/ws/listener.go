package ws

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"sermon-translate-service/internal/observability/logging"
)

// handleListener streams a session's transcript messages to one
// congregation client until the client leaves, falls too far behind, or
// the session ends.
func (s *Server) handleListener(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	sess, ok := s.manager.Get(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("listener upgrade failed")
		return
	}
	defer conn.Close()

	listener, err := sess.Subscribe()
	if err != nil {
		writeControlError(conn, "session ended")
		return
	}
	defer sess.Unsubscribe(listener.ID())

	logger := logging.WithListener(sessionID, listener.ID())
	logger.Info().Str("remote", r.RemoteAddr).Msg("listener connected")

	// Listeners never send application data; the read loop just
	// notices disconnects and keeps pong handling alive.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case msg, open := <-listener.Messages():
			if !open {
				// Evicted for falling behind, or the session ended.
				deadline := time.Now().Add(writeTimeout)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"), deadline)
				logger.Info().Msg("listener stream ended")
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Msg("listener write failed")
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readerDone:
			logger.Info().Msg("listener disconnected")
			return
		}
	}
}
