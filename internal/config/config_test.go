package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "BOOKING_DB_URL", "LLM_MODEL", "MESSAGE_THRESHOLD", "WHATSAPP_API_URL", "WHATSAPP_MAX_ATTEMPTS", "WEBHOOK_DEDUP", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.LLMModel != "qwen/qwen3-32b" {
		t.Fatalf("expected default model, got %s", cfg.LLMModel)
	}
	if cfg.MessageThreshold != 20 {
		t.Fatalf("expected default threshold 20, got %d", cfg.MessageThreshold)
	}
	if cfg.MaxResponseTokens != 500 {
		t.Fatalf("expected default max tokens 500, got %d", cfg.MaxResponseTokens)
	}
	if cfg.WhatsAppAPIURL != "https://api.aoc-portal.com/v1/whatsapp" {
		t.Fatalf("unexpected provider url %s", cfg.WhatsAppAPIURL)
	}
	if cfg.WhatsAppMaxAttempts != 3 || cfg.WhatsAppBackoff != time.Second || cfg.WhatsAppTimeout != 10*time.Second {
		t.Fatalf("unexpected delivery policy: %d %s %s", cfg.WhatsAppMaxAttempts, cfg.WhatsAppBackoff, cfg.WhatsAppTimeout)
	}
	if !cfg.WebhookDedup {
		t.Fatalf("expected dedup enabled by default")
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("BOOKING_DB_URL", "")
	t.Setenv("MESSAGE_THRESHOLD", "8")
	t.Setenv("SUMMARY_FALLBACK_PROVIDER", " Gemini ")
	t.Setenv("WHATSAPP_BACKOFF", "250ms")
	t.Setenv("WEBHOOK_RATE_LIMIT", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://admin.example.com, ,http://localhost:5173")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.BookingDatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected booking db to fall back to DATABASE_URL, got %s", cfg.BookingDatabaseURL)
	}
	if cfg.MessageThreshold != 8 {
		t.Fatalf("expected threshold override, got %d", cfg.MessageThreshold)
	}
	if cfg.SummaryFallbackProvider != "gemini" {
		t.Fatalf("expected normalized provider, got %q", cfg.SummaryFallbackProvider)
	}
	if cfg.WhatsAppBackoff != 250*time.Millisecond {
		t.Fatalf("expected backoff override, got %s", cfg.WhatsAppBackoff)
	}
	if cfg.WebhookRateLimit != 2.5 {
		t.Fatalf("expected rate override, got %v", cfg.WebhookRateLimit)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://localhost:5173" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
}
