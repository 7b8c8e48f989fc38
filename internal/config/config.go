package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultProjectID    = "thakii-973e3"
	defaultProviderHost = "securetoken.google.com"
	defaultJWKSURL      = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	developmentSecret   = "development-session-secret"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	Environment    string
	DatabaseURL    string
	RedisURL       string

	// Identity provider
	ProjectID             string
	IdentityProviderHost  string
	JWKSURL               string
	JWKSCacheTTL          time.Duration
	OutboundTimeout       time.Duration
	EnableTrustedVerifier bool
	GoogleCredentialsFile string

	// Session tokens
	SessionTokenSecret   string
	SessionTokenIssuer   string
	SessionTokenAudience string

	SuperAdminEmails []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigins:        parseList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		Environment:           getEnv("ENVIRONMENT", "production"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		ProjectID:             getEnv("FIREBASE_PROJECT_ID", getEnv("GOOGLE_CLOUD_PROJECT", defaultProjectID)),
		IdentityProviderHost:  getEnv("IDENTITY_PROVIDER_HOST", defaultProviderHost),
		JWKSURL:               getEnv("JWKS_URL", defaultJWKSURL),
		JWKSCacheTTL:          getDurationEnv("JWKS_CACHE_TTL", time.Hour),
		OutboundTimeout:       getDurationEnv("OUTBOUND_TIMEOUT", 10*time.Second),
		EnableTrustedVerifier: getBoolEnv("ENABLE_TRUSTED_VERIFIER", false),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		SessionTokenSecret:    getEnv("SESSION_TOKEN_SECRET", ""),
		SessionTokenIssuer:    getEnv("SESSION_TOKEN_ISSUER", "thakii-backend"),
		SessionTokenAudience:  getEnv("SESSION_TOKEN_AUDIENCE", "thakii-frontend"),
		SuperAdminEmails:      parseList(getEnv("SUPER_ADMIN_EMAILS", "")),
	}

	if cfg.SessionTokenSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("SESSION_TOKEN_SECRET is required in %s", cfg.Environment)
		}
		cfg.SessionTokenSecret = developmentSecret
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs in a local environment.
func (c *Config) IsDevelopment() bool {
	switch strings.ToLower(c.Environment) {
	case "development", "dev", "local", "test":
		return true
	}
	return false
}

// Issuer returns the expected issuer of identity provider tokens.
func (c *Config) Issuer() string {
	return fmt.Sprintf("https://%s/%s", c.IdentityProviderHost, c.ProjectID)
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseList parses comma-separated values into a slice
func parseList(values string) []string {
	if values == "" {
		return []string{}
	}

	parts := strings.Split(values, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDurationEnv accepts Go durations ("90s", "1h") or a bare number of seconds.
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
