package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backend selectors
const (
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
)

type Config struct {
	ServerPort string

	// ContextName labels this process on the event bus. Each running server
	// is one sync context; leave empty to get a generated id.
	ContextName string

	StoreBackend string
	RedisURL     string
	PostgresDSN  string

	// BusChannel is the cross-context broadcast channel name.
	BusChannel string

	JWTSecret         string
	AccessTokenMaxAge int // seconds

	// Upload pipeline tuning
	UploadTick        time.Duration
	UploadFailureRate float64

	// Username validator debounce window
	UsernameDebounce time.Duration

	// CommitLatency is the artificial delay before a composed post is
	// persisted and broadcast.
	CommitLatency time.Duration

	// Optional object-store sink for published media (S3 compatible).
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	// Generative search collaborator
	AIBaseURL string
	AIAPIKey  string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	cfg := &Config{
		ServerPort:   envOr("SERVER_PORT", "8080"),
		ContextName:  os.Getenv("CONTEXT_NAME"),
		StoreBackend: envOr("STORE_BACKEND", StoreBackendRedis),
		RedisURL:     envOr("REDIS_URL", "redis://localhost:6379"),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		BusChannel:   envOr("BUS_CHANNEL", "clix:realtime:sync"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		AccessTokenMaxAge: envIntOr("ACCESS_TOKEN_MAX_AGE", 86400),

		UploadTick:        envDurationOr("UPLOAD_TICK", 150*time.Millisecond),
		UploadFailureRate: envFloatOr("UPLOAD_FAILURE_RATE", 0.05),
		UsernameDebounce:  envDurationOr("USERNAME_DEBOUNCE", 400*time.Millisecond),
		CommitLatency:     envDurationOr("COMMIT_LATENCY", 500*time.Millisecond),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),

		AIBaseURL: os.Getenv("AI_BASE_URL"),
		AIAPIKey:  os.Getenv("AI_API_KEY"),
	}

	return cfg, nil
}

// MediaSinkConfigured reports whether the object-store sink can be used.
func (c *Config) MediaSinkConfigured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" &&
		c.R2SecretAccessKey != "" && c.R2BucketName != "" && c.R2PublicURL != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envFloatOr(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v < 0 || v > 1 {
		return fallback
	}
	return v
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
