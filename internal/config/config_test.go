package config

import (
	"os"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.AppEnv != "development" {
		t.Errorf("expected default AppEnv 'development', got %s", cfg.AppEnv)
	}

	if cfg.AppPort != 8080 {
		t.Errorf("expected default AppPort 8080, got %d", cfg.AppPort)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected default LogLevel 'info', got %s", cfg.LogLevel)
	}

	if cfg.LogFormat != "json" {
		t.Errorf("expected default LogFormat 'json', got %s", cfg.LogFormat)
	}

	if cfg.DispatchTimeout != 6*time.Second {
		t.Errorf("expected default DispatchTimeout 6s, got %s", cfg.DispatchTimeout)
	}

	if !cfg.GeoFallbackEnabled {
		t.Error("expected GeoFallbackEnabled to default to true")
	}
}

func TestConfig_AdapterToggles(t *testing.T) {
	cfg := &Config{}

	if cfg.MetaEnabled() || cfg.SnapchatEnabled() || cfg.TikTokEnabled() {
		t.Error("adapters without credentials should be disabled")
	}
	if cfg.WebhookEnabled() || cfg.EmailEnabled() {
		t.Error("webhook and email without config should be disabled")
	}

	cfg.MetaPixelID = "123"
	if cfg.MetaEnabled() {
		t.Error("pixel id alone should not enable Meta")
	}
	cfg.MetaAccessToken = "token"
	if !cfg.MetaEnabled() {
		t.Error("pixel id plus token should enable Meta")
	}

	cfg.AutomationWebhookURL = "https://hooks.example.com/catch/1"
	if !cfg.WebhookEnabled() {
		t.Error("webhook URL should enable the webhook channel")
	}

	cfg.LeadRecipientEmails = "sales@example.com"
	cfg.EmailUsername = "noreply@example.com"
	cfg.EmailPassword = "secret"
	if !cfg.EmailEnabled() {
		t.Error("recipients plus SMTP credentials should enable email")
	}
}

func TestConfig_LoadFromEnv(t *testing.T) {
	os.Setenv("META_PIXEL_ID", "111")
	os.Setenv("META_ACCESS_TOKEN", "tok")
	os.Setenv("LEAD_RECIPIENT_EMAILS", "a@example.com, b@example.com,")
	defer func() {
		os.Unsetenv("META_PIXEL_ID")
		os.Unsetenv("META_ACCESS_TOKEN")
		os.Unsetenv("LEAD_RECIPIENT_EMAILS")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !cfg.MetaEnabled() {
		t.Error("expected Meta to be enabled from env")
	}

	got := cfg.GetLeadRecipients()
	if len(got) != 2 || got[0] != "a@example.com" || got[1] != "b@example.com" {
		t.Errorf("unexpected recipients: %v", got)
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{AppEnv: "development"}
	if !cfg.IsDevelopment() {
		t.Error("expected IsDevelopment to return true")
	}

	cfg.AppEnv = "production"
	if cfg.IsDevelopment() {
		t.Error("expected IsDevelopment to return false")
	}
}

func TestConfig_IsProduction(t *testing.T) {
	cfg := &Config{AppEnv: "production"}
	if !cfg.IsProduction() {
		t.Error("expected IsProduction to return true")
	}

	cfg.AppEnv = "development"
	if cfg.IsProduction() {
		t.Error("expected IsProduction to return false")
	}
}
