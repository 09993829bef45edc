package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"sermon-translate-service/internal/observability/logging"
	"sermon-translate-service/internal/session"
)

// Control message types exchanged with the speaker client.
const (
	msgStart   = "start"
	msgStarted = "started"
	msgStop    = "stop"
	msgStopped = "stopped"
	msgError   = "error"
)

// controlMessage is a JSON text frame from the speaker. The first frame
// must be a start message; binary frames afterwards carry raw audio.
type controlMessage struct {
	Type           string `json:"type"`
	SourceLanguage string `json:"sourceLanguage,omitempty"`
	TargetLanguage string `json:"targetLanguage,omitempty"`
	LivePartials   *bool  `json:"livePartials,omitempty"`
}

// controlReply is a JSON text frame to the speaker.
type controlReply struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

func writeControlError(conn *websocket.Conn, msg string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteJSON(controlReply{Type: msgError, Error: msg})
}

// handleSpeaker runs one speaker connection: a start control frame
// creates the session, then binary frames stream audio until the
// speaker stops or disconnects. The session ends with the connection.
func (s *Server) handleSpeaker(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("speaker upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxFrameBytes)
	conn.SetReadDeadline(time.Now().Add(startTimeout))

	var start controlMessage
	if err := conn.ReadJSON(&start); err != nil {
		writeControlError(conn, "expected a start message")
		return
	}
	if start.Type != msgStart {
		writeControlError(conn, fmt.Sprintf("expected %q message, got %q", msgStart, start.Type))
		return
	}

	// The session deliberately outlives the request context: its
	// lifetime is bound to this loop, not to the upgrade request.
	sess, err := s.manager.Create(context.Background(), func(cfg *session.Config) {
		if start.SourceLanguage != "" {
			cfg.SourceLanguage = start.SourceLanguage
		}
		if start.TargetLanguage != "" {
			cfg.TargetLanguage = start.TargetLanguage
		}
		if start.LivePartials != nil {
			cfg.LivePartials = *start.LivePartials
		}
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("session start failed")
		writeControlError(conn, "could not start session")
		return
	}
	defer s.manager.Remove(sess.ID())

	logger := logging.WithSession(sess.ID())
	logger.Info().Str("remote", r.RemoteAddr).Msg("speaker connected")

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(controlReply{Type: msgStarted, SessionID: sess.ID()}); err != nil {
		return
	}

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("speaker connection error")
			} else {
				logger.Info().Msg("speaker disconnected")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if err := sess.PushAudio(data); err != nil {
				logger.Warn().Err(err).Msg("audio rejected")
				writeControlError(conn, "session ended")
				return
			}
		case websocket.TextMessage:
			var msg controlMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				writeControlError(conn, "malformed control message")
				continue
			}
			if msg.Type == msgStop {
				logger.Info().Msg("speaker requested stop")
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				_ = conn.WriteJSON(controlReply{Type: msgStopped, SessionID: sess.ID()})
				return
			}
		}
	}
}
