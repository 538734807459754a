// Package main is the entrypoint for the conversion beacon API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/madarat/beacon/internal/adapter"
	"github.com/madarat/beacon/internal/config"
	"github.com/madarat/beacon/internal/dedup"
	"github.com/madarat/beacon/internal/dispatch"
	"github.com/madarat/beacon/internal/geo"
	"github.com/madarat/beacon/internal/handler"
	"github.com/madarat/beacon/internal/metrics"
	"github.com/madarat/beacon/internal/middleware"
	"github.com/madarat/beacon/internal/notify"
	"github.com/madarat/beacon/internal/server"
)

func main() {
	ctx := context.Background()

	// .env is a local development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	recorder := metrics.NewInMemory()

	// Duplicate guard is optional; without Redis every event counts as
	// first-seen and the platforms deduplicate on event id themselves.
	var guard *dedup.Guard
	if cfg.RedisURL != "" {
		guard, err = dedup.New(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		defer guard.Close()
		logger.Info("connected to Redis")
	} else {
		logger.Info("duplicate guard disabled, REDIS_URL not set")
	}

	geoOpts := []geo.Option{geo.WithTimeout(cfg.GeoLookupTimeout)}
	if !cfg.GeoFallbackEnabled {
		geoOpts = append(geoOpts, geo.WithSecondaryDisabled())
	}
	resolver := geo.NewResolver(logger, recorder, geoOpts...)

	adapters := buildAdapters(cfg, logger, recorder)
	if len(adapters) == 0 {
		logger.Warn("no dispatch channels configured, events will be accepted and dropped")
	}

	dispatcher := dispatch.New(adapters, resolver, guard, logger, recorder)
	dispatcher.SetTimeout(cfg.DispatchTimeout)

	eventHandler := handler.NewEventHandler(dispatcher, logger)
	locationHandler := handler.NewLocationHandler(resolver, logger)
	healthHandler := handler.NewHealthHandler(healthChecker(guard), adapterNames(adapters))
	metricsHandler := handler.NewMetricsHandler(recorder)

	r := setupRouter(eventHandler, locationHandler, healthHandler, metricsHandler, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"channels", adapterNames(adapters),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// buildAdapters wires up every channel that has credentials configured.
// A channel without credentials is skipped with a log line; the rest
// keep working.
func buildAdapters(cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) []adapter.Adapter {
	client := adapter.NewHTTPClient(adapter.SendTimeout)
	var adapters []adapter.Adapter

	if cfg.MetaEnabled() {
		adapters = append(adapters, adapter.NewMeta(adapter.MetaConfig{
			PixelID:       cfg.MetaPixelID,
			AccessToken:   cfg.MetaAccessToken,
			TestEventCode: cfg.MetaTestEventCode,
		}, client, logger))
	} else {
		logger.Info("meta adapter disabled, credentials not configured")
	}

	if cfg.SnapchatEnabled() {
		adapters = append(adapters, adapter.NewSnapchat(adapter.SnapchatConfig{
			PixelID:     cfg.SnapchatPixelID,
			AccessToken: cfg.SnapchatAccessToken,
		}, client, logger))
	} else {
		logger.Info("snapchat adapter disabled, credentials not configured")
	}

	if cfg.TikTokEnabled() {
		adapters = append(adapters, adapter.NewTikTok(adapter.TikTokConfig{
			PixelID:       cfg.TikTokPixelID,
			AccessToken:   cfg.TikTokAccessToken,
			TestEventCode: cfg.TikTokTestEventCode,
		}, client, logger))
	} else {
		logger.Info("tiktok adapter disabled, credentials not configured")
	}

	if cfg.WebhookEnabled() {
		adapters = append(adapters, adapter.NewWebhook(adapter.WebhookConfig{
			URL:    cfg.AutomationWebhookURL,
			Secret: cfg.WebhookSecretKey,
		}, client, logger, recorder))
	} else {
		logger.Info("automation webhook disabled, URL not configured")
	}

	if cfg.EmailEnabled() {
		adapters = append(adapters, notify.NewEmail(notify.EmailConfig{
			Host:       cfg.EmailHost,
			Port:       cfg.EmailPort,
			Username:   cfg.EmailUsername,
			Password:   cfg.EmailPassword,
			SenderName: cfg.EmailSenderName,
			Recipients: cfg.GetLeadRecipients(),
		}, logger))
	} else {
		logger.Info("lead email disabled, SMTP credentials or recipients not configured")
	}

	return adapters
}

func adapterNames(adapters []adapter.Adapter) []string {
	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = a.Name()
	}
	return names
}

// healthChecker converts a possibly-nil guard into the handler
// interface; a typed nil must not masquerade as a live checker.
func healthChecker(guard *dedup.Guard) handler.HealthChecker {
	if guard == nil {
		return nil
	}
	return guard
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	eventHandler *handler.EventHandler,
	locationHandler *handler.LocationHandler,
	healthHandler *handler.HealthHandler,
	metricsHandler *handler.MetricsHandler,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.MaxBody(cfg.MaxRequestBodySize))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))

	// Health endpoints
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Debug metrics, in-memory counters only
	r.Get("/debug/metrics", metricsHandler.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/events", eventHandler.Track)
		r.Post("/events/offline", eventHandler.TrackOffline)
		r.Get("/location", locationHandler.Lookup)
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
