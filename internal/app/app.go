package app

import (
	"os"
	"strings"
	"time"

	"sermon-translate-service/internal/config"
	"sermon-translate-service/internal/observability/logging"

	"github.com/rs/zerolog"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Config) *Application {
	a := &Application{
		Cfg: cfg,
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	appLogger.Info().Msg("sermon translate service application created")
	return a
}

// setupLogger configures zerolog for the whole process. The level comes
// from configuration; ZEROLOG_LOG_LEVEL overrides it so a deployed
// instance can be turned up to debug without a config change.
func (a *Application) setupLogger() {
	level := a.Cfg.Observability.LogLevel
	if envLevel := os.Getenv("ZEROLOG_LOG_LEVEL"); envLevel != "" {
		level = strings.ToLower(envLevel)
	}

	format := "json"
	if os.Getenv("ENV") == "dev" {
		format = "console"
	}

	logging.Init(logging.Config{
		Level:      level,
		Format:     format,
		TimeFormat: time.RFC3339,
	})

	a.Logger = logging.Logger().With().
		Str("service", "sermon-translate-service").
		Str("component", "application").
		Logger()

	a.Logger.Info().
		Str("logLevel", level).
		Str("environment", os.Getenv("ENV")).
		Msg("Logger setup completed")
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("sermon translate service starting")

	return nil
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().Msg("sermon translate service shutting down")
}
