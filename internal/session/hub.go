package session

import (
	"sync"

	"github.com/google/uuid"

	"sermon-translate-service/internal/clock"
	"sermon-translate-service/internal/models"
	"sermon-translate-service/internal/observability/metrics"
)

// listenerBuffer is each subscriber's queue depth. A reader further
// behind than this is not keeping up with a live sermon.
const listenerBuffer = 32

// Listener is one subscriber's view of a session's transcript stream.
// The channel closes when the session ends or the listener is evicted.
type Listener struct {
	id string
	ch chan models.StreamMessage
}

// ID returns the listener's identifier.
func (l *Listener) ID() string {
	return l.id
}

// Messages delivers transcript messages in broadcast order.
func (l *Listener) Messages() <-chan models.StreamMessage {
	return l.ch
}

// Hub fans transcript messages out to a session's listeners without ever
// blocking the sender. Every message carries a per-session sequence
// number shared across message types. A slow listener first has live
// updates dropped (the next snapshot supersedes them anyway); if it also
// cannot absorb a committed message it is evicted.
type Hub struct {
	clk clock.Clock

	mu        sync.Mutex
	listeners map[string]*Listener
	seq       uint64
	closed    bool
}

// NewHub creates an empty hub.
func NewHub(clk clock.Clock) *Hub {
	return &Hub{
		clk:       clk,
		listeners: make(map[string]*Listener),
	}
}

// Subscribe registers a new listener.
func (h *Hub) Subscribe() (*Listener, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrSessionClosed
	}
	l := &Listener{
		id: uuid.NewString(),
		ch: make(chan models.StreamMessage, listenerBuffer),
	}
	h.listeners[l.id] = l
	metrics.DefaultMetrics.RecordListenerConnect()
	return l, nil
}

// Unsubscribe removes a listener and closes its channel. Safe to call
// for an already evicted or unknown listener.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.listeners[id]
	if !ok {
		return
	}
	delete(h.listeners, id)
	close(l.ch)
	metrics.DefaultMetrics.RecordListenerDisconnect()
}

// Count returns the number of connected listeners.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// BroadcastLive replaces the live caption line. Empty text clears it.
func (h *Hub) BroadcastLive(text string) {
	h.broadcast(models.StreamMessage{
		Type: models.MessageTypeLive,
		Text: text,
	})
}

// BroadcastTranslatedLive pushes a translated rendering of the live
// line. SourceText tells clients which snapshot it belongs to.
func (h *Hub) BroadcastTranslatedLive(source, translated string) {
	h.broadcast(models.StreamMessage{
		Type:       models.MessageTypeLive,
		Text:       translated,
		SourceText: source,
	})
}

// BroadcastCommitted pushes one committed utterance.
func (h *Hub) BroadcastCommitted(source, output string, fallback bool) {
	h.broadcast(models.StreamMessage{
		Type:       models.MessageTypeCommitted,
		Text:       output,
		SourceText: source,
		Fallback:   fallback,
	})
}

func (h *Hub) broadcast(msg models.StreamMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.seq++
	msg.Seq = h.seq
	msg.Timestamp = h.clk.Now().UnixMilli()

	for id, l := range h.listeners {
		select {
		case l.ch <- msg:
		default:
			if msg.Type == models.MessageTypeLive {
				// Stale live update; the next snapshot replaces it.
				metrics.DefaultMetrics.RecordListenerDrop()
				continue
			}
			// A committed message must not be skipped. The listener
			// cannot keep up; cut it loose.
			delete(h.listeners, id)
			close(l.ch)
			metrics.DefaultMetrics.RecordListenerDrop()
			metrics.DefaultMetrics.RecordListenerDisconnect()
		}
	}
}

// Close evicts all listeners and rejects future subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, l := range h.listeners {
		delete(h.listeners, id)
		close(l.ch)
		metrics.DefaultMetrics.RecordListenerDisconnect()
	}
}
