package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Dispatch: cron spec triggering one claim/handle/ack cycle per
	// partition, batch sizing, and the claim lease.
	DispatchSpec      string
	BatchSize         int
	VisibilityTimeout time.Duration

	// Retry backoff ladder: index 0 = delay after the first failed attempt.
	RetryBackoff []time.Duration

	// Rate limiting: maximum sends per second per channel.
	RateLimit int

	// Channel providers
	EmailProviderURL string
	SMSProviderURL   string
	SlackWebhookURL  string
	ProviderTimeout  time.Duration

	// Queue depth gauge sampling interval.
	DepthPollInterval time.Duration
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		DispatchSpec:      getEnv("DISPATCH_SPEC", "@every 30s"),
		BatchSize:         getInt("DISPATCH_BATCH_SIZE", 25),
		VisibilityTimeout: getDuration("VISIBILITY_TIMEOUT", 5*time.Minute),

		RetryBackoff: []time.Duration{
			getDuration("RETRY_BACKOFF_1", 30*time.Second),
			getDuration("RETRY_BACKOFF_2", 2*time.Minute),
			getDuration("RETRY_BACKOFF_3", 10*time.Minute),
		},

		RateLimit: getInt("RATE_LIMIT_PER_CHANNEL", 50),

		EmailProviderURL: getEnv("EMAIL_PROVIDER_URL", "http://localhost:9901"),
		SMSProviderURL:   getEnv("SMS_PROVIDER_URL", "http://localhost:9902"),
		SlackWebhookURL:  getEnv("SLACK_WEBHOOK_URL", ""),
		ProviderTimeout:  getDuration("PROVIDER_TIMEOUT", 10*time.Second),

		DepthPollInterval: getDuration("DEPTH_POLL_INTERVAL", 15*time.Second),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
