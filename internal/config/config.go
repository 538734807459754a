// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Meta (Facebook) Conversions API
	MetaPixelID       string `env:"META_PIXEL_ID"`
	MetaAccessToken   string `env:"META_ACCESS_TOKEN"`
	MetaTestEventCode string `env:"META_TEST_EVENT_CODE"`

	// Snapchat Conversions API
	SnapchatPixelID     string `env:"SNAPCHAT_PIXEL_ID"`
	SnapchatAccessToken string `env:"SNAPCHAT_ACCESS_TOKEN"`

	// TikTok Events API
	TikTokPixelID       string `env:"TIKTOK_PIXEL_ID"`
	TikTokAccessToken   string `env:"TIKTOK_ACCESS_TOKEN"`
	TikTokTestEventCode string `env:"TIKTOK_TEST_EVENT_CODE"`

	// Automation webhook (CRM intake)
	AutomationWebhookURL string `env:"AUTOMATION_WEBHOOK_URL"`
	WebhookSecretKey     string `env:"WEBHOOK_SECRET_KEY"`

	// Lead notification email (SMTP over implicit TLS)
	LeadRecipientEmails string `env:"LEAD_RECIPIENT_EMAILS"`
	EmailHost           string `env:"EMAIL_HOST" envDefault:"smtp.gmail.com"`
	EmailPort           int    `env:"EMAIL_PORT" envDefault:"465"`
	EmailUsername       string `env:"EMAIL_USERNAME"`
	EmailPassword       string `env:"EMAIL_PASSWORD"`
	EmailSenderName     string `env:"EMAIL_SENDER_NAME" envDefault:"Website Leads"`

	// Geolocation
	GeoFallbackEnabled bool          `env:"GEO_FALLBACK_ENABLED" envDefault:"true"`
	GeoLookupTimeout   time.Duration `env:"GEO_LOOKUP_TIMEOUT" envDefault:"5s"`

	// Duplicate-event guard (optional; empty disables it)
	RedisURL string `env:"REDIS_URL"`

	// Dispatch fan-out ceiling
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"6s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MetaEnabled reports whether the Meta adapter has credentials.
func (c *Config) MetaEnabled() bool {
	return c.MetaPixelID != "" && c.MetaAccessToken != ""
}

// SnapchatEnabled reports whether the Snapchat adapter has credentials.
func (c *Config) SnapchatEnabled() bool {
	return c.SnapchatPixelID != "" && c.SnapchatAccessToken != ""
}

// TikTokEnabled reports whether the TikTok adapter has credentials.
func (c *Config) TikTokEnabled() bool {
	return c.TikTokPixelID != "" && c.TikTokAccessToken != ""
}

// WebhookEnabled reports whether the automation webhook is configured.
func (c *Config) WebhookEnabled() bool {
	return c.AutomationWebhookURL != ""
}

// EmailEnabled reports whether the lead email channel is configured.
func (c *Config) EmailEnabled() bool {
	return len(c.GetLeadRecipients()) > 0 && c.EmailUsername != "" && c.EmailPassword != ""
}

// GetLeadRecipients parses the comma-separated recipients string into a slice.
func (c *Config) GetLeadRecipients() []string {
	return splitCommaList(c.LeadRecipientEmails)
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	return splitCommaList(c.CORSAllowedOrigins)
}

func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
