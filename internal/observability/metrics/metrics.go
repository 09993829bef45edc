// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sermon_translate"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsSuccess prometheus.Counter
	SessionsFailed  prometheus.Counter
	SessionDuration prometheus.Histogram

	// Segment metrics
	SegmentsReceived *prometheus.CounterVec
	SegmentsDropped  *prometheus.CounterVec

	// Live caption metrics
	LivePartials       prometheus.Counter
	PartialsSuppressed *prometheus.CounterVec

	// Finalization metrics
	PendingCreated  prometheus.Counter
	PendingExtended prometheus.Counter
	PendingTimeouts *prometheus.CounterVec

	// Commit metrics
	CommitsTotal        prometheus.Counter
	CommitQueueDepth    prometheus.Gauge
	CommitProcessing    prometheus.Histogram
	InvariantViolations prometheus.Counter

	// Stream restart and recovery metrics
	StreamRestarts       *prometheus.CounterVec
	ForcedFinalsBuffered prometheus.Counter
	StaleForcedFinals    prometheus.Counter
	RecoveryMerges       *prometheus.CounterVec
	RecoveryUnmatched    prometheus.Counter
	RecoveryTimeouts     prometheus.Counter

	// Translation metrics
	TranslationOutcomes  *prometheus.CounterVec
	TranslationFallbacks prometheus.Counter
	TranslationLatency   *prometheus.HistogramVec

	// Audio metrics
	AudioBytesReceived  prometheus.Counter
	AudioFramesReceived prometheus.Counter
	UtterancesTotal     prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// Listener metrics
	ListenersActive prometheus.Gauge
	ListenersTotal  prometheus.Counter
	ListenerDrops   prometheus.Counter
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of speaker sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active speaker sessions",
		}),
		SessionsSuccess: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_success_total",
			Help:      "Total number of sessions completed cleanly",
		}),
		SessionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_failed_total",
			Help:      "Total number of sessions ended by errors",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of speaker sessions in seconds",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600, 7200},
		}),

		// Segment metrics
		SegmentsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_received_total",
			Help:      "Total number of hypothesis segments routed",
		}, []string{"kind"}),
		SegmentsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_dropped_total",
			Help:      "Total number of segments dropped",
		}, []string{"reason"}),

		// Live caption metrics
		LivePartials: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_partials_total",
			Help:      "Total number of live caption updates published",
		}),
		PartialsSuppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partials_suppressed_total",
			Help:      "Total number of partials suppressed before display",
		}, []string{"reason"}),

		// Finalization metrics
		PendingCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_finalizations_total",
			Help:      "Total number of finals held open for extension",
		}),
		PendingExtended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_extensions_total",
			Help:      "Total number of extensions applied to held finals",
		}),
		PendingTimeouts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_timeouts_total",
			Help:      "Total number of held finals committed by timeout",
		}, []string{"cause"}),

		// Commit metrics
		CommitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Total number of utterances committed",
		}),
		CommitQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "commit_queue_depth",
			Help:      "Commits waiting for downstream processing",
		}),
		CommitProcessing: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_processing_seconds",
			Help:      "Downstream processing time per commit in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		InvariantViolations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invariant_violations_total",
			Help:      "Total number of fatal pipeline invariant violations",
		}),

		// Stream restart and recovery metrics
		StreamRestarts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_restarts_total",
			Help:      "Total number of recognizer stream restarts",
		}, []string{"reason"}),
		ForcedFinalsBuffered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_finals_buffered_total",
			Help:      "Total number of teardown texts buffered for recovery",
		}),
		StaleForcedFinals: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_forced_finals_total",
			Help:      "Total number of teardown buffers flushed by a second teardown",
		}),
		RecoveryMerges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_merges_total",
			Help:      "Total number of recovery reconciliations by strategy",
		}, []string{"reason"}),
		RecoveryUnmatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_unmatched_total",
			Help:      "Total number of recovery segments with no buffered text",
		}),
		RecoveryTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_timeouts_total",
			Help:      "Total number of teardown buffers committed without recovery",
		}),

		// Translation metrics
		TranslationOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_outcomes_total",
			Help:      "Total number of translation attempts by outcome category",
		}, []string{"category"}),
		TranslationFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_fallbacks_total",
			Help:      "Total number of commits shipped with untranslated text",
		}),
		TranslationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translation_latency_seconds",
			Help:      "Translation backend latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"provider"}),

		// Audio metrics
		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received",
		}),
		AudioFramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_received_total",
			Help:      "Total audio frames received",
		}),
		UtterancesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_total",
			Help:      "Total number of utterance boundaries detected",
		}),

		// Kafka publish metrics
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		// Listener metrics
		ListenersActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listeners_active",
			Help:      "Number of currently connected listeners",
		}),
		ListenersTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listeners_total",
			Help:      "Total number of listener connections",
		}),
		ListenerDrops: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_drops_total",
			Help:      "Total number of stale live updates dropped for slow listeners",
		}),
	}
}

// RecordSessionStart records a new speaker session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a speaker session ending.
func (m *Metrics) RecordSessionEnd(success bool, durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
	if success {
		m.SessionsSuccess.Inc()
	} else {
		m.SessionsFailed.Inc()
	}
}

// RecordSegment records a hypothesis segment entering the pipeline.
func (m *Metrics) RecordSegment(kind string) {
	m.SegmentsReceived.WithLabelValues(kind).Inc()
}

// RecordSegmentDropped records a segment being dropped.
func (m *Metrics) RecordSegmentDropped(reason string) {
	m.SegmentsDropped.WithLabelValues(reason).Inc()
}

// RecordLivePartial records a live caption update.
func (m *Metrics) RecordLivePartial() {
	m.LivePartials.Inc()
}

// RecordPartialSuppressed records a partial filtered before display.
func (m *Metrics) RecordPartialSuppressed(reason string) {
	m.PartialsSuppressed.WithLabelValues(reason).Inc()
}

// RecordPendingCreated records a final held open for extension.
func (m *Metrics) RecordPendingCreated() {
	m.PendingCreated.Inc()
}

// RecordPendingExtended records an extension applied to a held final.
func (m *Metrics) RecordPendingExtended() {
	m.PendingExtended.Inc()
}

// RecordPendingTimeout records a held final committed by timeout.
func (m *Metrics) RecordPendingTimeout(cause string) {
	m.PendingTimeouts.WithLabelValues(cause).Inc()
}

// RecordCommitQueued records an utterance entering the commit queue.
func (m *Metrics) RecordCommitQueued() {
	m.CommitsTotal.Inc()
	m.CommitQueueDepth.Inc()
}

// RecordCommitDequeued records a commit leaving the queue after processing.
func (m *Metrics) RecordCommitDequeued() {
	m.CommitQueueDepth.Dec()
}

// RecordCommitProcessed records downstream processing time for one commit.
func (m *Metrics) RecordCommitProcessed(seconds float64) {
	m.CommitProcessing.Observe(seconds)
}

// RecordInvariantViolation records a fatal pipeline error.
func (m *Metrics) RecordInvariantViolation() {
	m.InvariantViolations.Inc()
}

// RecordStreamRestart records a recognizer stream restart.
func (m *Metrics) RecordStreamRestart(reason string) {
	m.StreamRestarts.WithLabelValues(reason).Inc()
}

// RecordForcedFinalBuffered records teardown text buffered for recovery.
func (m *Metrics) RecordForcedFinalBuffered() {
	m.ForcedFinalsBuffered.Inc()
}

// RecordStaleForcedFinal records a buffer flushed by a second teardown.
func (m *Metrics) RecordStaleForcedFinal() {
	m.StaleForcedFinals.Inc()
}

// RecordRecoveryMerge records a reconciliation by strategy.
func (m *Metrics) RecordRecoveryMerge(reason string) {
	m.RecoveryMerges.WithLabelValues(reason).Inc()
}

// RecordRecoveryUnmatched records a recovery segment with nothing buffered.
func (m *Metrics) RecordRecoveryUnmatched() {
	m.RecoveryUnmatched.Inc()
}

// RecordRecoveryTimeout records a buffer committed because recovery never
// arrived.
func (m *Metrics) RecordRecoveryTimeout() {
	m.RecoveryTimeouts.Inc()
}

// RecordTranslationOutcome records one translation attempt's category.
func (m *Metrics) RecordTranslationOutcome(category string) {
	m.TranslationOutcomes.WithLabelValues(category).Inc()
}

// RecordTranslationFallback records a commit shipped untranslated.
func (m *Metrics) RecordTranslationFallback() {
	m.TranslationFallbacks.Inc()
}

// RecordTranslationLatency records translation backend latency.
func (m *Metrics) RecordTranslationLatency(provider string, seconds float64) {
	m.TranslationLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordAudioReceived records audio bytes and frames received.
func (m *Metrics) RecordAudioReceived(bytes int) {
	m.AudioBytesReceived.Add(float64(bytes))
	m.AudioFramesReceived.Inc()
}

// RecordUtterance records an utterance boundary detection.
func (m *Metrics) RecordUtterance() {
	m.UtterancesTotal.Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordListenerConnect records a listener joining.
func (m *Metrics) RecordListenerConnect() {
	m.ListenersTotal.Inc()
	m.ListenersActive.Inc()
}

// RecordListenerDisconnect records a listener leaving.
func (m *Metrics) RecordListenerDisconnect() {
	m.ListenersActive.Dec()
}

// RecordListenerDrop records a stale live update dropped for a slow
// listener.
func (m *Metrics) RecordListenerDrop() {
	m.ListenerDrops.Inc()
}
