package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"sermon-translate-service/internal/api/ws"
	"sermon-translate-service/internal/app"
	"sermon-translate-service/internal/clock"
	"sermon-translate-service/internal/config"
	"sermon-translate-service/internal/events"
	httpapi "sermon-translate-service/internal/http"
	"sermon-translate-service/internal/observability"
	"sermon-translate-service/internal/service/stt"
	"sermon-translate-service/internal/service/stt/google"
	mockstt "sermon-translate-service/internal/service/stt/mock"
	"sermon-translate-service/internal/service/transcript"
	"sermon-translate-service/internal/service/translate"
	translatemock "sermon-translate-service/internal/service/translate/mock"
	"sermon-translate-service/internal/service/translate/openai"
	"sermon-translate-service/internal/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			stdlog.Fatalf("load config %s: %v", *configPath, err)
		}
		cfg = loaded
	} else {
		cfg = config.Load()
	}

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		application.Logger.Fatal().Err(err).Msg("application start failed")
	}
	logger := application.Logger

	// Kafka publisher with separate topics for live and committed transcripts
	publisher := events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicLive:      cfg.Kafka.TopicLive,
		TopicCommitted: cfg.Kafka.TopicCommitted,
		Principal:      cfg.Kafka.Principal,
	})
	defer publisher.Close()

	newAdapter, err := adapterFactory(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("speech recognizer setup failed")
	}

	provider, err := translateProvider(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("translation provider setup failed")
	}

	manager := session.NewManager(session.Deps{
		Clock:      clock.System(),
		NewAdapter: newAdapter,
		Provider:   provider,
		Publisher:  publisher,
		Template:   sessionTemplate(cfg),
	})

	wsServer := ws.NewServer(":"+cfg.Service.WSPort, manager)
	opsServer := &http.Server{
		Addr:    ":" + cfg.Service.HTTPPort,
		Handler: httpapi.NewRouter(application, manager),
	}
	metricsServer := observability.NewServer(":" + cfg.Observability.MetricsPort)

	wsServer.Start()
	metricsServer.Start()
	go func() {
		logger.Info().Str("addr", opsServer.Addr).Msg("ops server listening")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("ops server failed")
		}
	}()
	metricsServer.MarkReady()

	logger.Info().
		Str("wsPort", cfg.Service.WSPort).
		Str("httpPort", cfg.Service.HTTPPort).
		Str("metricsPort", cfg.Observability.MetricsPort).
		Str("sttProvider", cfg.STT.Provider).
		Str("translateProvider", cfg.Translate.Provider).
		Bool("kafkaEnabled", cfg.Kafka.Enabled).
		Msg("sermon translate service started")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop intake first so no new sessions or listeners arrive, then
	// drain the sessions that remain.
	var g errgroup.Group
	g.Go(func() error { return wsServer.Shutdown(shutdownCtx) })
	g.Go(func() error { return opsServer.Shutdown(shutdownCtx) })
	g.Go(func() error { return metricsServer.Shutdown(shutdownCtx) })
	if err := g.Wait(); err != nil {
		logger.Warn().Err(err).Msg("server shutdown incomplete")
	}

	manager.Shutdown()
	application.Shutdown()
}

// adapterFactory builds the per-stream recognizer constructor for the
// configured provider. Sessions call it once per stream generation.
func adapterFactory(cfg *config.Config) (session.AdapterFactory, error) {
	switch cfg.STT.Provider {
	case "google":
		gcfg := google.Config{
			LanguageCode:   cfg.STT.LanguageCode,
			SampleRateHz:   int32(cfg.STT.SampleRateHz),
			InterimResults: cfg.STT.InterimResults,
			AudioEncoding:  cfg.STT.AudioEncoding,
		}
		return func(ctx context.Context) (stt.Adapter, error) {
			return google.New(ctx, gcfg)
		}, nil
	case "mock":
		return func(ctx context.Context) (stt.Adapter, error) {
			return mockstt.New(), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown stt provider %q", cfg.STT.Provider)
	}
}

// translateProvider builds the configured translation backend. A nil
// provider means commits pass through untranslated.
func translateProvider(cfg *config.Config) (translate.Provider, error) {
	switch cfg.Translate.Provider {
	case "openai":
		return openai.New(cfg.Translate.OpenAIAPIKey, cfg.Translate.OpenAIModel)
	case "mock":
		return translatemock.New(), nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown translate provider %q", cfg.Translate.Provider)
	}
}

func sessionTemplate(cfg *config.Config) session.Config {
	src := cfg.Translate.SourceLanguage
	if src == "" {
		src = cfg.STT.LanguageCode
	}

	return session.Config{
		STTProvider:     cfg.STT.Provider,
		SourceLanguage:  src,
		TargetLanguage:  cfg.Translate.TargetLanguage,
		LivePartials:    cfg.Translate.LivePartials,
		RestartInterval: cfg.Stream.RestartInterval,
		MaxStreamBytes:  cfg.Stream.MaxAudioBytes,
		TailBytes:       cfg.Stream.TailBytes,
		Transcript: transcript.Config{
			DedupTimeWindow:       cfg.Transcript.DedupWindow,
			DedupMaxPhraseLen:     cfg.Transcript.DedupMaxPhraseLen,
			PendingMaxWait:        cfg.Transcript.PendingMaxWait,
			PendingIdleTimeout:    cfg.Transcript.PendingIdleTimeout,
			ShortPartialThreshold: cfg.Transcript.ShortPartialThreshold,
			CommitDeadline:        cfg.Transcript.CommitDeadline,
			LongestPartialMaxAge:  cfg.Transcript.LongestPartialMaxAge,
			EnableRecovery:        cfg.Transcript.EnableRecovery,
			MaxRetries:            cfg.Transcript.MaxRetries,
		},
	}
}
