// Package config provides environment configuration for the inbox client.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings (the UI-facing facade)
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Tenant identity. The engine refuses to start without it.
	TenantID string
	// AdminOverride relaxes the tenant guard for support admins who may
	// see every tenant.
	AdminOverride bool

	// Backend REST API
	BackendURL   string
	BackendToken string

	// NATS settings (push-event channel)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings (facade auth)
	JWTSecret string

	// Engine tuning
	ConversationPageSize int
	MessagePageSize      int
	DedupeWindow         time.Duration
	RefreshInterval      time.Duration
	TypingTTL            time.Duration
	AssistTypingTTL      time.Duration

	// Assist (reply suggestions)
	AnthropicAPIKey string
	OpenAIAPIKey    string
	DefaultAssist   string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// ErrMissingTenant is returned when no tenant identity is configured.
var ErrMissingTenant = errors.New("tenant identity is required")

// Load reads configuration from the environment. A .env file is loaded
// first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Tenant
		TenantID:      getEnv("TENANT_ID", ""),
		AdminOverride: getBoolEnv("TENANT_ADMIN_OVERRIDE", false),

		// Backend
		BackendURL:   getEnv("BACKEND_URL", "http://localhost:9000"),
		BackendToken: getEnv("BACKEND_TOKEN", ""),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// Engine
		ConversationPageSize: getIntEnv("CONVERSATION_PAGE_SIZE", 20),
		MessagePageSize:      getIntEnv("MESSAGE_PAGE_SIZE", 50),
		DedupeWindow:         getDurationEnv("DEDUPE_WINDOW", 2*time.Second),
		RefreshInterval:      getDurationEnv("REFRESH_INTERVAL", 30*time.Second),
		TypingTTL:            getDurationEnv("TYPING_TTL", 5*time.Second),
		AssistTypingTTL:      getDurationEnv("ASSIST_TYPING_TTL", 15*time.Second),

		// Assist
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		DefaultAssist:   getEnv("DEFAULT_ASSIST", "anthropic"),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}

	if cfg.TenantID == "" {
		return nil, ErrMissingTenant
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
