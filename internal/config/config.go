package config

import (
	"os"
	"time"
)

// Limits applied before anything reaches a store.
const (
	MaxChatTitleLength = 120
	MaxMessageLength   = 4000
	MaxUploadBytes     = 10 << 20
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	// Blob storage
	BlobDir       string
	PublicBaseURL string // prefix for durable download URLs, e.g. http://localhost:8080
	// Inference server (OCR + image generation)
	InferenceBaseURL string
	// Auth
	JWTSecret   string
	TokenTTL    time.Duration
	AuthJWKSURL string // when set, tokens are verified against an external IdP's JWKS instead of JWTSecret
	CORSOrigins string
	// Optional log file directory; empty means stdout only
	LogDir string
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	port := getEnv("PORT", "8080")

	return &Config{
		Port:             port,
		Environment:      env,
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		BlobDir:          getEnv("BLOB_DIR", "data/blobs"),
		PublicBaseURL:    getEnv("PUBLIC_BASE_URL", "http://localhost:"+port),
		InferenceBaseURL: getEnv("INFERENCE_URL", "http://localhost:5000"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		TokenTTL:         getDuration("TOKEN_TTL", 24*time.Hour),
		AuthJWKSURL:      getEnv("AUTH_JWKS_URL", ""),
		CORSOrigins:      getEnv("CORS_ORIGINS", "http://localhost:3000"),
		LogDir:           getEnv("LOG_DIR", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
