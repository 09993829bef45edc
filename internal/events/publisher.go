// Package events provides transcript event publishing.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"sermon-translate-service/internal/models"
	"sermon-translate-service/internal/observability/metrics"
	"sermon-translate-service/internal/schema"
)

// Publisher publishes transcript events to separate Kafka topics, one
// for live caption updates and one for committed utterances. Payloads
// are schema-checked before they leave the process.
type Publisher struct {
	writerLive      *kafka.Writer
	writerCommitted *kafka.Writer
	principal       string
	topicLive       string
	topicCommitted  string
	enabled         bool
	validator       *schema.Validator
	metrics         *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string
	TopicLive      string
	TopicCommitted string
	Principal      string
	Enabled        bool
}

// New creates a Kafka publisher. With a nil or disabled config the
// publisher runs in log-only mode and every publish succeeds locally.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics
	v := schema.New()

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled:   false,
			validator: v,
			metrics:   m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:      cfg.Principal,
			topicLive:      cfg.TopicLive,
			topicCommitted: cfg.TopicCommitted,
			enabled:        false,
			validator:      v,
			metrics:        m,
		}
	}

	// Custom dialer with longer timeouts for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerLive := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicLive,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	writerCommitted := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicCommitted,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicLive", cfg.TopicLive).
		Str("topicCommitted", cfg.TopicCommitted).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerLive:      writerLive,
		writerCommitted: writerCommitted,
		principal:       cfg.Principal,
		topicLive:       cfg.TopicLive,
		topicCommitted:  cfg.TopicCommitted,
		enabled:         true,
		validator:       v,
		metrics:         m,
	}
}

// PublishLive publishes a live caption update, keyed by session ID.
func (p *Publisher) PublishLive(ctx context.Context, key string, event models.TranscriptLive) error {
	return p.publish(ctx, p.writerLive, p.topicLive, "live", models.EventTypeLive, key, event)
}

// PublishCommitted publishes a committed utterance, keyed by session ID.
func (p *Publisher) PublishCommitted(ctx context.Context, key string, event models.TranscriptCommitted) error {
	return p.publish(ctx, p.writerCommitted, p.topicCommitted, "committed", models.EventTypeCommitted, key, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, kind, eventType, key string, event any) error {
	start := time.Now()

	if err := p.validator.Validate(event); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Event failed schema check")
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, kind, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, kind, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, kind, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerLive != nil {
		if e := p.writerLive.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing live writer")
			err = e
		}
	}
	if p.writerCommitted != nil {
		if e := p.writerCommitted.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing committed writer")
			err = e
		}
	}
	return err
}
