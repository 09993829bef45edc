package session

import (
	"testing"
	"time"

	"sermon-translate-service/internal/clock"
	"sermon-translate-service/internal/models"
)

func TestHub_BroadcastReachesAllListeners(t *testing.T) {
	hub := NewHub(clock.NewManual(time.Now()))
	defer hub.Close()

	first, err := hub.Subscribe()
	if err != nil {
		t.Fatalf("unexpected subscribe error: %v", err)
	}
	second, err := hub.Subscribe()
	if err != nil {
		t.Fatalf("unexpected subscribe error: %v", err)
	}
	if hub.Count() != 2 {
		t.Errorf("expected 2 listeners, got %d", hub.Count())
	}

	hub.BroadcastLive("blessed are the peacemakers")

	for _, l := range []*Listener{first, second} {
		select {
		case msg := <-l.Messages():
			if msg.Type != models.MessageTypeLive {
				t.Errorf("expected type %q, got %q", models.MessageTypeLive, msg.Type)
			}
			if msg.Text != "blessed are the peacemakers" {
				t.Errorf("unexpected text %q", msg.Text)
			}
			if msg.Seq != 1 {
				t.Errorf("expected seq 1, got %d", msg.Seq)
			}
			if msg.Timestamp == 0 {
				t.Error("expected a timestamp")
			}
		default:
			t.Errorf("listener %s received nothing", l.ID())
		}
	}
}

func TestHub_SequenceSharedAcrossMessageTypes(t *testing.T) {
	hub := NewHub(clock.NewManual(time.Now()))
	defer hub.Close()

	l, err := hub.Subscribe()
	if err != nil {
		t.Fatalf("unexpected subscribe error: %v", err)
	}

	hub.BroadcastLive("and he said")
	hub.BroadcastCommitted("and he said unto them", "y les dijo", false)
	hub.BroadcastTranslatedLive("follow me", "sígueme")

	wantSeqs := []uint64{1, 2, 3}
	wantTypes := []string{models.MessageTypeLive, models.MessageTypeCommitted, models.MessageTypeLive}
	for i := range wantSeqs {
		msg := <-l.Messages()
		if msg.Seq != wantSeqs[i] {
			t.Errorf("message %d: expected seq %d, got %d", i, wantSeqs[i], msg.Seq)
		}
		if msg.Type != wantTypes[i] {
			t.Errorf("message %d: expected type %q, got %q", i, wantTypes[i], msg.Type)
		}
	}
}

func TestHub_TranslatedLiveCarriesSourceText(t *testing.T) {
	hub := NewHub(clock.NewManual(time.Now()))
	defer hub.Close()

	l, err := hub.Subscribe()
	if err != nil {
		t.Fatalf("unexpected subscribe error: %v", err)
	}

	hub.BroadcastTranslatedLive("let us pray", "oremos")

	msg := <-l.Messages()
	if msg.Text != "oremos" {
		t.Errorf("expected translated text, got %q", msg.Text)
	}
	if msg.SourceText != "let us pray" {
		t.Errorf("expected source text, got %q", msg.SourceText)
	}
}

func TestHub_SlowListenerDropsLiveUpdates(t *testing.T) {
	hub := NewHub(clock.NewManual(time.Now()))
	defer hub.Close()

	l, err := hub.Subscribe()
	if err != nil {
		t.Fatalf("unexpected subscribe error: %v", err)
	}

	for i := 0; i < listenerBuffer+5; i++ {
		hub.BroadcastLive("update")
	}

	// Live updates past the buffer are dropped, not queued, and the
	// listener stays connected.
	if hub.Count() != 1 {
		t.Errorf("expected listener to stay connected, count %d", hub.Count())
	}

	received := 0
	for {
		select {
		case <-l.Messages():
			received++
			continue
		default:
		}
		break
	}
	if received != listenerBuffer {
		t.Errorf("expected %d buffered messages, got %d", listenerBuffer, received)
	}
}

func TestHub_SlowListenerEvictedOnCommitted(t *testing.T) {
	hub := NewHub(clock.NewManual(time.Now()))
	defer hub.Close()

	l, err := hub.Subscribe()
	if err != nil {
		t.Fatalf("unexpected subscribe error: %v", err)
	}

	for i := 0; i < listenerBuffer; i++ {
		hub.BroadcastLive("update")
	}
	hub.BroadcastCommitted("source", "output", false)

	if hub.Count() != 0 {
		t.Errorf("expected listener to be evicted, count %d", hub.Count())
	}

	// The buffered live messages drain, then the channel closes; the
	// committed message never arrives.
	for i := 0; i < listenerBuffer; i++ {
		msg, ok := <-l.Messages()
		if !ok {
			t.Fatalf("channel closed after %d messages", i)
		}
		if msg.Type != models.MessageTypeLive {
			t.Errorf("expected only live messages, got %q", msg.Type)
		}
	}
	if _, ok := <-l.Messages(); ok {
		t.Error("expected channel to be closed after eviction")
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(clock.NewManual(time.Now()))
	defer hub.Close()

	l, err := hub.Subscribe()
	if err != nil {
		t.Fatalf("unexpected subscribe error: %v", err)
	}

	hub.Unsubscribe(l.ID())
	if _, ok := <-l.Messages(); ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
	if hub.Count() != 0 {
		t.Errorf("expected 0 listeners, got %d", hub.Count())
	}

	// Repeat and unknown ids are no-ops.
	hub.Unsubscribe(l.ID())
	hub.Unsubscribe("nope")
}

func TestHub_CloseEvictsEverybody(t *testing.T) {
	hub := NewHub(clock.NewManual(time.Now()))

	first, err := hub.Subscribe()
	if err != nil {
		t.Fatalf("unexpected subscribe error: %v", err)
	}
	second, err := hub.Subscribe()
	if err != nil {
		t.Fatalf("unexpected subscribe error: %v", err)
	}

	hub.Close()

	for _, l := range []*Listener{first, second} {
		if _, ok := <-l.Messages(); ok {
			t.Error("expected channel to be closed")
		}
	}
	if _, err := hub.Subscribe(); err != ErrSessionClosed {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}

	// Broadcasting into a closed hub is a no-op.
	hub.BroadcastLive("anyone there")
	hub.Close()
}
