package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	DatabaseURL        string
	BookingDatabaseURL string
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	TenantCacheTTL     time.Duration

	// LLM (OpenAI-compatible endpoint, Groq by default)
	LLMAPIKey         string
	LLMBaseURL        string
	LLMModel          string
	LLMTimeout        time.Duration
	MaxResponseTokens int
	MessageThreshold  int

	// Summarizer fallback provider: "", "gemini" or "bedrock"
	SummaryFallbackProvider string
	GeminiAPIKey            string
	GeminiModel             string
	BedrockModelID          string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	ArchiveBucket       string

	// WhatsApp provider delivery
	WhatsAppAPIURL      string
	WhatsAppTimeout     time.Duration
	WhatsAppMaxAttempts int
	WhatsAppBackoff     time.Duration

	AdminJWTSecret     string
	CORSAllowedOrigins []string
	WebhookRateLimit   float64
	WebhookRateBurst   int
	WebhookDedup       bool
	WebhookSecret      string
}

// Load reads configuration from environment variables
func Load() *Config {
	databaseURL := getEnv("DATABASE_URL", "")
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),

		DatabaseURL:        databaseURL,
		BookingDatabaseURL: getEnv("BOOKING_DB_URL", databaseURL),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		TenantCacheTTL:     getEnvAsDuration("TENANT_CACHE_TTL", 5*time.Minute),

		LLMAPIKey:         getEnv("GROQ_API_KEY", ""),
		LLMBaseURL:        getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMModel:          getEnv("LLM_MODEL", "qwen/qwen3-32b"),
		LLMTimeout:        getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		MaxResponseTokens: getEnvAsInt("MAX_RESPONSE_TOKENS", 500),
		MessageThreshold:  getEnvAsInt("MESSAGE_THRESHOLD", 20),

		SummaryFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("SUMMARY_FALLBACK_PROVIDER", ""))),
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		GeminiModel:             getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		BedrockModelID:          getEnv("BEDROCK_MODEL_ID", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		ArchiveBucket:       getEnv("ARCHIVE_BUCKET", ""),

		WhatsAppAPIURL:      getEnv("WHATSAPP_API_URL", "https://api.aoc-portal.com/v1/whatsapp"),
		WhatsAppTimeout:     getEnvAsDuration("WHATSAPP_TIMEOUT", 10*time.Second),
		WhatsAppMaxAttempts: getEnvAsInt("WHATSAPP_MAX_ATTEMPTS", 3),
		WhatsAppBackoff:     getEnvAsDuration("WHATSAPP_BACKOFF", time.Second),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		WebhookRateLimit:   getEnvAsFloat("WEBHOOK_RATE_LIMIT", 20),
		WebhookRateBurst:   getEnvAsInt("WEBHOOK_RATE_BURST", 40),
		WebhookDedup:       getEnvAsBool("WEBHOOK_DEDUP", true),
		WebhookSecret:      getEnv("WEBHOOK_SIGNING_SECRET", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
