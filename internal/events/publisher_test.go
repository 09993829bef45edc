package events

import (
	"context"
	"errors"
	"testing"

	"sermon-translate-service/internal/models"
	"sermon-translate-service/internal/schema"
)

func liveEvent() models.TranscriptLive {
	return models.TranscriptLive{
		EventType: models.EventTypeLive,
		SessionID: "sess-123",
		Seq:       4,
		Timestamp: 1700000000000,
		Text:      "behold I stand at the door",
		Language:  "en-US",
	}
}

func committedEvent() models.TranscriptCommitted {
	return models.TranscriptCommitted{
		EventType:      models.EventTypeCommitted,
		SessionID:      "sess-123",
		Seq:            2,
		Timestamp:      1700000000000,
		SourceText:     "Behold, I stand at the door and knock.",
		Text:           "He aquí, yo estoy a la puerta y llamo.",
		SourceLanguage: "en-US",
		TargetLanguage: "es",
	}
}

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"nil brokers", &Config{Enabled: true, Brokers: nil}},
		{"nil config", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writerLive != nil {
				t.Error("expected nil live writer when disabled")
			}
			if p.writerCommitted != nil {
				t.Error("expected nil committed writer when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	cfg := &Config{
		Enabled:        false,
		Brokers:        []string{"localhost:9092"},
		TopicLive:      "test.live",
		TopicCommitted: "test.committed",
		Principal:      "test-principal",
	}

	p := New(cfg)

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topicLive != "test.live" {
		t.Errorf("expected live topic 'test.live', got %s", p.topicLive)
	}
	if p.topicCommitted != "test.committed" {
		t.Errorf("expected committed topic 'test.committed', got %s", p.topicCommitted)
	}
}

func TestPublisher_PublishLive_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	err := p.PublishLive(context.Background(), "sess-123", liveEvent())
	if err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishCommitted_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	err := p.PublishCommitted(context.Background(), "sess-123", committedEvent())
	if err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishLive_FailsSchemaCheck(t *testing.T) {
	p := New(&Config{Enabled: false})

	event := liveEvent()
	event.SessionID = ""

	err := p.PublishLive(context.Background(), "sess-123", event)
	if !errors.Is(err, schema.ErrMissingField) {
		t.Errorf("expected schema error for missing session, got %v", err)
	}
}

func TestPublisher_PublishCommitted_FailsSchemaCheck(t *testing.T) {
	p := New(&Config{Enabled: false})

	event := committedEvent()
	event.Text = ""

	err := p.PublishCommitted(context.Background(), "sess-123", event)
	if !errors.Is(err, schema.ErrMissingField) {
		t.Errorf("expected schema error for empty text, got %v", err)
	}
}

func TestPublisher_PublishLive_ClearLineAllowed(t *testing.T) {
	p := New(&Config{Enabled: false})

	event := liveEvent()
	event.Text = ""

	err := p.PublishLive(context.Background(), "sess-123", event)
	if err != nil {
		t.Errorf("expected empty live text to publish as a clear-line update, got %v", err)
	}
}

func TestPublisher_Close_NoWriters(t *testing.T) {
	p := New(&Config{Enabled: false})

	err := p.Close()
	if err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestPublisher_Close_NilWriters(t *testing.T) {
	p := &Publisher{
		writerLive:      nil,
		writerCommitted: nil,
	}

	err := p.Close()
	if err != nil {
		t.Errorf("expected no error closing publisher with nil writers, got %v", err)
	}
}
