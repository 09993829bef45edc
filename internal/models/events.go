// Package models defines the event payloads published to Kafka and
// pushed to listener websockets.
package models

// Event types carried in payloads and Kafka headers.
const (
	EventTypeLive      = "transcript.live"
	EventTypeCommitted = "transcript.committed"
)

// Message types on the listener websocket.
const (
	MessageTypeLive      = "live"
	MessageTypeCommitted = "committed"
)

// TranscriptLive is the current live caption line for a session. An empty
// Text clears the line: the previous hypothesis was fully absorbed by the
// last committed utterance.
type TranscriptLive struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
	Language  string `json:"language"`
}

// TranscriptCommitted is one committed utterance with its translation.
// Seq is the commit sequence, strictly increasing per session. On
// fallback the Text carries the untranslated source.
type TranscriptCommitted struct {
	EventType      string `json:"eventType"`
	SessionID      string `json:"sessionId"`
	Seq            uint64 `json:"seq"`
	Timestamp      int64  `json:"timestamp"`
	SourceText     string `json:"sourceText"`
	Text           string `json:"text"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
	Fallback       bool   `json:"fallback"`
	Outcome        string `json:"outcome"`
	LatencyMs      int64  `json:"latencyMs"`
}

// StreamMessage is the envelope pushed to listener websockets. Seq is a
// per-session counter shared across both message types, so a client can
// discard a live update that raced a later committed message.
type StreamMessage struct {
	Type       string `json:"type"`
	Seq        uint64 `json:"seq"`
	Timestamp  int64  `json:"timestamp"`
	Text       string `json:"text"`
	SourceText string `json:"sourceText,omitempty"`
	Fallback   bool   `json:"fallback,omitempty"`
}
