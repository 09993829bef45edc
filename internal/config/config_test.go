package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(vars ...string) {
	for _, v := range vars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Clear relevant env vars
	clearEnv(
		"SERVICE_PRINCIPAL", "WS_PORT", "HTTP_PORT", "LOG_LEVEL", "METRICS_PORT",
		"STT_PROVIDER", "STT_LANGUAGE_CODE", "STT_SAMPLE_RATE_HZ",
		"STT_INTERIM_RESULTS", "STT_AUDIO_ENCODING",
		"STT_STREAM_RESTART_INTERVAL", "STT_STREAM_MAX_AUDIO_BYTES", "STT_STREAM_TAIL_BYTES",
		"TRANSCRIPT_DEDUP_WINDOW", "TRANSCRIPT_PENDING_MAX_WAIT", "TRANSCRIPT_ENABLE_RECOVERY",
		"TRANSLATE_PROVIDER", "TRANSLATE_SOURCE_LANG", "TRANSLATE_TARGET_LANG",
		"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_PRINCIPAL",
	)

	cfg := Load()

	// Service defaults
	if cfg.Service.Principal != "svc-sermon-translate" {
		t.Errorf("expected default principal 'svc-sermon-translate', got %s", cfg.Service.Principal)
	}
	if cfg.Service.WSPort != "8080" {
		t.Errorf("expected default ws port '8080', got %s", cfg.Service.WSPort)
	}
	if cfg.Service.HTTPPort != "8081" {
		t.Errorf("expected default http port '8081', got %s", cfg.Service.HTTPPort)
	}

	// STT defaults
	if cfg.STT.Provider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.STT.InterimResults != true {
		t.Errorf("expected default interim results true, got %v", cfg.STT.InterimResults)
	}
	if cfg.STT.AudioEncoding != "LINEAR16" {
		t.Errorf("expected default encoding 'LINEAR16', got %s", cfg.STT.AudioEncoding)
	}

	// Stream defaults
	if cfg.Stream.RestartInterval != 4*time.Minute {
		t.Errorf("expected default restart interval 4m, got %v", cfg.Stream.RestartInterval)
	}
	if cfg.Stream.MaxAudioBytes != 10*1024*1024 {
		t.Errorf("expected default max audio bytes 10MB, got %d", cfg.Stream.MaxAudioBytes)
	}
	if cfg.Stream.TailBytes != 32768 {
		t.Errorf("expected default tail bytes 32768, got %d", cfg.Stream.TailBytes)
	}

	// Transcript defaults
	if cfg.Transcript.DedupWindow != 5*time.Second {
		t.Errorf("expected default dedup window 5s, got %v", cfg.Transcript.DedupWindow)
	}
	if cfg.Transcript.DedupMaxPhraseLen != 5 {
		t.Errorf("expected default dedup max phrase len 5, got %d", cfg.Transcript.DedupMaxPhraseLen)
	}
	if cfg.Transcript.PendingMaxWait != 5*time.Second {
		t.Errorf("expected default pending max wait 5s, got %v", cfg.Transcript.PendingMaxWait)
	}
	if cfg.Transcript.PendingIdleTimeout != 2*time.Second {
		t.Errorf("expected default pending idle timeout 2s, got %v", cfg.Transcript.PendingIdleTimeout)
	}
	if cfg.Transcript.ShortPartialThreshold != 4 {
		t.Errorf("expected default short partial threshold 4, got %d", cfg.Transcript.ShortPartialThreshold)
	}
	if cfg.Transcript.CommitDeadline != 2*time.Second {
		t.Errorf("expected default commit deadline 2s, got %v", cfg.Transcript.CommitDeadline)
	}
	if cfg.Transcript.LongestPartialMaxAge != 10*time.Second {
		t.Errorf("expected default longest partial max age 10s, got %v", cfg.Transcript.LongestPartialMaxAge)
	}
	if cfg.Transcript.EnableRecovery != true {
		t.Errorf("expected recovery enabled by default, got %v", cfg.Transcript.EnableRecovery)
	}
	if cfg.Transcript.MaxRetries != 2 {
		t.Errorf("expected default max retries 2, got %d", cfg.Transcript.MaxRetries)
	}

	// Translate defaults
	if cfg.Translate.Provider != "mock" {
		t.Errorf("expected default translate provider 'mock', got %s", cfg.Translate.Provider)
	}
	if cfg.Translate.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("expected default model 'gpt-4o-mini', got %s", cfg.Translate.OpenAIModel)
	}
	if cfg.Translate.SourceLanguage != "en-US" {
		t.Errorf("expected default source language 'en-US', got %s", cfg.Translate.SourceLanguage)
	}
	if cfg.Translate.TargetLanguage != "es" {
		t.Errorf("expected default target language 'es', got %s", cfg.Translate.TargetLanguage)
	}

	// Kafka defaults
	if cfg.Kafka.Enabled != true {
		t.Errorf("expected Kafka enabled by default, got %v", cfg.Kafka.Enabled)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "localhost:9092" {
		t.Errorf("expected default brokers [localhost:9092], got %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.TopicLive != "transcript.live" {
		t.Errorf("expected default live topic 'transcript.live', got %s", cfg.Kafka.TopicLive)
	}
	if cfg.Kafka.TopicCommitted != "transcript.committed" {
		t.Errorf("expected default committed topic 'transcript.committed', got %s", cfg.Kafka.TopicCommitted)
	}

	// Observability defaults
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.MetricsPort != "9090" {
		t.Errorf("expected default metrics port '9090', got %s", cfg.Observability.MetricsPort)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	// Set custom env vars
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("WS_PORT", "9999")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("STT_PROVIDER", "google")
	os.Setenv("STT_LANGUAGE_CODE", "es-ES")
	os.Setenv("STT_SAMPLE_RATE_HZ", "8000")
	os.Setenv("STT_INTERIM_RESULTS", "false")
	os.Setenv("STT_AUDIO_ENCODING", "MULAW")
	os.Setenv("STT_STREAM_RESTART_INTERVAL", "2m")
	os.Setenv("STT_STREAM_MAX_AUDIO_BYTES", "5242880")
	os.Setenv("TRANSCRIPT_DEDUP_WINDOW", "3s")
	os.Setenv("TRANSCRIPT_ENABLE_RECOVERY", "false")
	os.Setenv("TRANSLATE_PROVIDER", "openai")
	os.Setenv("TRANSLATE_TARGET_LANG", "pt-BR")
	os.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	defer clearEnv(
		"SERVICE_PRINCIPAL", "WS_PORT", "LOG_LEVEL",
		"STT_PROVIDER", "STT_LANGUAGE_CODE", "STT_SAMPLE_RATE_HZ",
		"STT_INTERIM_RESULTS", "STT_AUDIO_ENCODING",
		"STT_STREAM_RESTART_INTERVAL", "STT_STREAM_MAX_AUDIO_BYTES",
		"TRANSCRIPT_DEDUP_WINDOW", "TRANSCRIPT_ENABLE_RECOVERY",
		"TRANSLATE_PROVIDER", "TRANSLATE_TARGET_LANG",
		"KAFKA_BROKERS",
	)

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.WSPort != "9999" {
		t.Errorf("expected ws port '9999', got %s", cfg.Service.WSPort)
	}
	if cfg.STT.Provider != "google" {
		t.Errorf("expected STT provider 'google', got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "es-ES" {
		t.Errorf("expected language 'es-ES', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.SampleRateHz != 8000 {
		t.Errorf("expected sample rate 8000, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.STT.InterimResults != false {
		t.Errorf("expected interim results false, got %v", cfg.STT.InterimResults)
	}
	if cfg.STT.AudioEncoding != "MULAW" {
		t.Errorf("expected encoding 'MULAW', got %s", cfg.STT.AudioEncoding)
	}
	if cfg.Stream.RestartInterval != 2*time.Minute {
		t.Errorf("expected restart interval 2m, got %v", cfg.Stream.RestartInterval)
	}
	if cfg.Stream.MaxAudioBytes != 5242880 {
		t.Errorf("expected max audio bytes 5242880, got %d", cfg.Stream.MaxAudioBytes)
	}
	if cfg.Transcript.DedupWindow != 3*time.Second {
		t.Errorf("expected dedup window 3s, got %v", cfg.Transcript.DedupWindow)
	}
	if cfg.Transcript.EnableRecovery != false {
		t.Errorf("expected recovery disabled, got %v", cfg.Transcript.EnableRecovery)
	}
	if cfg.Translate.Provider != "openai" {
		t.Errorf("expected translate provider 'openai', got %s", cfg.Translate.Provider)
	}
	if cfg.Translate.TargetLanguage != "pt-BR" {
		t.Errorf("expected target language 'pt-BR', got %s", cfg.Translate.TargetLanguage)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "kafka-1:9092" || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("expected brokers [kafka-1:9092 kafka-2:9092], got %v", cfg.Kafka.Brokers)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	// Set invalid env vars
	os.Setenv("STT_SAMPLE_RATE_HZ", "not-a-number")
	os.Setenv("STT_INTERIM_RESULTS", "invalid")
	os.Setenv("STT_STREAM_RESTART_INTERVAL", "invalid")
	os.Setenv("STT_STREAM_MAX_AUDIO_BYTES", "invalid")
	os.Setenv("TRANSCRIPT_DEDUP_WINDOW", "invalid")
	os.Setenv("TRANSCRIPT_MAX_RETRIES", "invalid")

	defer clearEnv(
		"STT_SAMPLE_RATE_HZ", "STT_INTERIM_RESULTS",
		"STT_STREAM_RESTART_INTERVAL", "STT_STREAM_MAX_AUDIO_BYTES",
		"TRANSCRIPT_DEDUP_WINDOW", "TRANSCRIPT_MAX_RETRIES",
	)

	cfg := Load()

	// Should fall back to defaults on parse errors
	if cfg.STT.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate on invalid input, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.STT.InterimResults != true {
		t.Errorf("expected default interim results on invalid input, got %v", cfg.STT.InterimResults)
	}
	if cfg.Stream.RestartInterval != 4*time.Minute {
		t.Errorf("expected default restart interval on invalid input, got %v", cfg.Stream.RestartInterval)
	}
	if cfg.Stream.MaxAudioBytes != 10*1024*1024 {
		t.Errorf("expected default max audio bytes on invalid input, got %d", cfg.Stream.MaxAudioBytes)
	}
	if cfg.Transcript.DedupWindow != 5*time.Second {
		t.Errorf("expected default dedup window on invalid input, got %v", cfg.Transcript.DedupWindow)
	}
	if cfg.Transcript.MaxRetries != 2 {
		t.Errorf("expected default max retries on invalid input, got %d", cfg.Transcript.MaxRetries)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "my-service")
	os.Unsetenv("KAFKA_PRINCIPAL")

	defer os.Unsetenv("SERVICE_PRINCIPAL")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestLoad_KafkaPrincipal_ExplicitOverride(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "my-service")
	os.Setenv("KAFKA_PRINCIPAL", "kafka-writer")

	defer clearEnv("SERVICE_PRINCIPAL", "KAFKA_PRINCIPAL")

	cfg := Load()

	if cfg.Kafka.Principal != "kafka-writer" {
		t.Errorf("expected explicit Kafka principal 'kafka-writer', got %s", cfg.Kafka.Principal)
	}
}

func TestLoadFile_YAMLOverridesDefaults(t *testing.T) {
	clearEnv("STT_PROVIDER", "STT_LANGUAGE_CODE", "TRANSLATE_TARGET_LANG", "KAFKA_ENABLED", "WS_PORT")

	yamlBody := `
service:
  ws_port: "7070"
stt:
  provider: google
  language_code: pt-BR
translate:
  target_language: en
kafka:
  enabled: false
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}

	if cfg.Service.WSPort != "7070" {
		t.Errorf("expected ws port '7070' from file, got %s", cfg.Service.WSPort)
	}
	if cfg.STT.Provider != "google" {
		t.Errorf("expected STT provider 'google' from file, got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "pt-BR" {
		t.Errorf("expected language 'pt-BR' from file, got %s", cfg.STT.LanguageCode)
	}
	if cfg.Translate.TargetLanguage != "en" {
		t.Errorf("expected target language 'en' from file, got %s", cfg.Translate.TargetLanguage)
	}
	if cfg.Kafka.Enabled != false {
		t.Errorf("expected Kafka disabled from file, got %v", cfg.Kafka.Enabled)
	}
	// Fields absent from the file keep their defaults.
	if cfg.STT.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate untouched by file, got %d", cfg.STT.SampleRateHz)
	}
}

func TestLoadFile_EnvWinsOverFile(t *testing.T) {
	os.Setenv("STT_PROVIDER", "mock")
	defer os.Unsetenv("STT_PROVIDER")

	yamlBody := `
stt:
  provider: google
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}

	if cfg.STT.Provider != "mock" {
		t.Errorf("expected env to win over file, got provider %s", cfg.STT.Provider)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "no-such-file.yaml"))
	if err == nil {
		t.Error("expected error for missing config file, got nil")
	}
}

func TestLoadFile_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("stt: [not a mapping"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	_, err := LoadFile(path)
	if err == nil {
		t.Error("expected error for malformed YAML, got nil")
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}

func TestEnvOrDefaultSlice(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      []string
		expected []string
	}{
		{"single", "a:9092", []string{"z"}, []string{"a:9092"}},
		{"comma separated", "a:9092,b:9092", []string{"z"}, []string{"a:9092", "b:9092"}},
		{"spaces trimmed", " a:9092 , b:9092 ", []string{"z"}, []string{"a:9092", "b:9092"}},
		{"empty", "", []string{"z"}, []string{"z"}},
		{"only commas", ",,", []string{"z"}, []string{"z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_SLICE_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultSlice(key, tt.def)
			if len(got) != len(tt.expected) {
				t.Fatalf("envOrDefaultSlice(%s) = %v, want %v", tt.envValue, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("envOrDefaultSlice(%s)[%d] = %s, want %s", tt.envValue, i, got[i], tt.expected[i])
				}
			}
		})
	}
}
