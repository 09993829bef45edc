// Package config assembles service configuration from defaults, an
// optional YAML file, and environment variables, in that order of
// precedence (environment wins).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	STT           STTConfig           `yaml:"stt"`
	Stream        StreamConfig        `yaml:"stream"`
	Transcript    TranscriptConfig    `yaml:"transcript"`
	Translate     TranslateConfig     `yaml:"translate"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServiceConfig identifies the service and its listening ports.
type ServiceConfig struct {
	Principal string `yaml:"principal"`
	WSPort    string `yaml:"ws_port"`
	HTTPPort  string `yaml:"http_port"`
}

// STTConfig selects and parameterizes the speech recognizer.
type STTConfig struct {
	Provider       string `yaml:"provider"`
	LanguageCode   string `yaml:"language_code"`
	SampleRateHz   int    `yaml:"sample_rate_hz"`
	InterimResults bool   `yaml:"interim_results"`
	AudioEncoding  string `yaml:"audio_encoding"`
}

// StreamConfig bounds one recognizer stream. Streams are restarted before
// the provider's own limits cut them off mid-word.
type StreamConfig struct {
	RestartInterval time.Duration `yaml:"restart_interval"`
	MaxAudioBytes   int64         `yaml:"max_audio_bytes"`
	TailBytes       int           `yaml:"tail_bytes"`
}

// TranscriptConfig tunes the normalization pipeline.
type TranscriptConfig struct {
	DedupWindow           time.Duration `yaml:"dedup_window"`
	DedupMaxPhraseLen     int           `yaml:"dedup_max_phrase_len"`
	PendingMaxWait        time.Duration `yaml:"pending_max_wait"`
	PendingIdleTimeout    time.Duration `yaml:"pending_idle_timeout"`
	ShortPartialThreshold int           `yaml:"short_partial_threshold"`
	CommitDeadline        time.Duration `yaml:"commit_deadline"`
	LongestPartialMaxAge  time.Duration `yaml:"longest_partial_max_age"`
	EnableRecovery        bool          `yaml:"enable_recovery"`
	MaxRetries            int           `yaml:"max_retries"`
}

// TranslateConfig selects and parameterizes the translation backend.
type TranslateConfig struct {
	Provider       string `yaml:"provider"`
	OpenAIAPIKey   string `yaml:"openai_api_key"`
	OpenAIModel    string `yaml:"openai_model"`
	SourceLanguage string `yaml:"source_language"`
	TargetLanguage string `yaml:"target_language"`
	LivePartials   bool   `yaml:"live_partials"`
}

// KafkaConfig parameterizes transcript event publishing.
type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	TopicLive      string   `yaml:"topic_live"`
	TopicCommitted string   `yaml:"topic_committed"`
	Principal      string   `yaml:"principal"`
}

// ObservabilityConfig tunes logging and metrics exposure.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	MetricsPort string `yaml:"metrics_port"`
}

func defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Principal: "svc-sermon-translate",
			WSPort:    "8080",
			HTTPPort:  "8081",
		},
		STT: STTConfig{
			Provider:       "mock",
			LanguageCode:   "en-US",
			SampleRateHz:   16000,
			InterimResults: true,
			AudioEncoding:  "LINEAR16",
		},
		Stream: StreamConfig{
			RestartInterval: 4 * time.Minute,
			MaxAudioBytes:   10 * 1024 * 1024,
			TailBytes:       32768,
		},
		Transcript: TranscriptConfig{
			DedupWindow:           5 * time.Second,
			DedupMaxPhraseLen:     5,
			PendingMaxWait:        5 * time.Second,
			PendingIdleTimeout:    2 * time.Second,
			ShortPartialThreshold: 4,
			CommitDeadline:        2 * time.Second,
			LongestPartialMaxAge:  10 * time.Second,
			EnableRecovery:        true,
			MaxRetries:            2,
		},
		Translate: TranslateConfig{
			Provider:       "mock",
			OpenAIModel:    "gpt-4o-mini",
			SourceLanguage: "en-US",
			TargetLanguage: "es",
		},
		Kafka: KafkaConfig{
			Enabled:        true,
			Brokers:        []string{"localhost:9092"},
			TopicLive:      "transcript.live",
			TopicCommitted: "transcript.committed",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			MetricsPort: "9090",
		},
	}
}

// Load builds the configuration from defaults and environment variables.
func Load() *Config {
	cfg := defaults()
	applyEnv(cfg)
	finalize(cfg)
	return cfg
}

// LoadFile builds the configuration from defaults, the YAML file at path,
// and environment variables. Environment variables win over the file.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnv(cfg)
	finalize(cfg)
	return cfg, nil
}

// applyEnv overrides fields for which an environment variable is set; the
// current value doubles as the fallback.
func applyEnv(cfg *Config) {
	cfg.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", cfg.Service.Principal)
	cfg.Service.WSPort = envOrDefault("WS_PORT", cfg.Service.WSPort)
	cfg.Service.HTTPPort = envOrDefault("HTTP_PORT", cfg.Service.HTTPPort)

	cfg.STT.Provider = envOrDefault("STT_PROVIDER", cfg.STT.Provider)
	cfg.STT.LanguageCode = envOrDefault("STT_LANGUAGE_CODE", cfg.STT.LanguageCode)
	cfg.STT.SampleRateHz = envOrDefaultInt("STT_SAMPLE_RATE_HZ", cfg.STT.SampleRateHz)
	cfg.STT.InterimResults = envOrDefaultBool("STT_INTERIM_RESULTS", cfg.STT.InterimResults)
	cfg.STT.AudioEncoding = envOrDefault("STT_AUDIO_ENCODING", cfg.STT.AudioEncoding)

	cfg.Stream.RestartInterval = envOrDefaultDuration("STT_STREAM_RESTART_INTERVAL", cfg.Stream.RestartInterval)
	cfg.Stream.MaxAudioBytes = envOrDefaultInt64("STT_STREAM_MAX_AUDIO_BYTES", cfg.Stream.MaxAudioBytes)
	cfg.Stream.TailBytes = envOrDefaultInt("STT_STREAM_TAIL_BYTES", cfg.Stream.TailBytes)

	cfg.Transcript.DedupWindow = envOrDefaultDuration("TRANSCRIPT_DEDUP_WINDOW", cfg.Transcript.DedupWindow)
	cfg.Transcript.DedupMaxPhraseLen = envOrDefaultInt("TRANSCRIPT_DEDUP_MAX_PHRASE_LEN", cfg.Transcript.DedupMaxPhraseLen)
	cfg.Transcript.PendingMaxWait = envOrDefaultDuration("TRANSCRIPT_PENDING_MAX_WAIT", cfg.Transcript.PendingMaxWait)
	cfg.Transcript.PendingIdleTimeout = envOrDefaultDuration("TRANSCRIPT_PENDING_IDLE_TIMEOUT", cfg.Transcript.PendingIdleTimeout)
	cfg.Transcript.ShortPartialThreshold = envOrDefaultInt("TRANSCRIPT_SHORT_PARTIAL_THRESHOLD", cfg.Transcript.ShortPartialThreshold)
	cfg.Transcript.CommitDeadline = envOrDefaultDuration("TRANSCRIPT_COMMIT_DEADLINE", cfg.Transcript.CommitDeadline)
	cfg.Transcript.LongestPartialMaxAge = envOrDefaultDuration("TRANSCRIPT_LONGEST_PARTIAL_MAX_AGE", cfg.Transcript.LongestPartialMaxAge)
	cfg.Transcript.EnableRecovery = envOrDefaultBool("TRANSCRIPT_ENABLE_RECOVERY", cfg.Transcript.EnableRecovery)
	cfg.Transcript.MaxRetries = envOrDefaultInt("TRANSCRIPT_MAX_RETRIES", cfg.Transcript.MaxRetries)

	cfg.Translate.Provider = envOrDefault("TRANSLATE_PROVIDER", cfg.Translate.Provider)
	cfg.Translate.OpenAIAPIKey = envOrDefault("OPENAI_API_KEY", cfg.Translate.OpenAIAPIKey)
	cfg.Translate.OpenAIModel = envOrDefault("OPENAI_MODEL", cfg.Translate.OpenAIModel)
	cfg.Translate.SourceLanguage = envOrDefault("TRANSLATE_SOURCE_LANG", cfg.Translate.SourceLanguage)
	cfg.Translate.TargetLanguage = envOrDefault("TRANSLATE_TARGET_LANG", cfg.Translate.TargetLanguage)
	cfg.Translate.LivePartials = envOrDefaultBool("TRANSLATE_LIVE_PARTIALS", cfg.Translate.LivePartials)

	cfg.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", cfg.Kafka.Enabled)
	cfg.Kafka.Brokers = envOrDefaultSlice("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.TopicLive = envOrDefault("KAFKA_TOPIC_LIVE", cfg.Kafka.TopicLive)
	cfg.Kafka.TopicCommitted = envOrDefault("KAFKA_TOPIC_COMMITTED", cfg.Kafka.TopicCommitted)
	cfg.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", cfg.Kafka.Principal)

	cfg.Observability.LogLevel = envOrDefault("LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.MetricsPort = envOrDefault("METRICS_PORT", cfg.Observability.MetricsPort)
}

func finalize(cfg *Config) {
	if cfg.Kafka.Principal == "" {
		cfg.Kafka.Principal = cfg.Service.Principal
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return parsed
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func envOrDefaultInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return parsed
}

func envOrDefaultSlice(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
