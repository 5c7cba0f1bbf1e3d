package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Answering backend connection
	BackendURL    string
	BackendAPIKey string

	// Auth for this service's own API; empty disables auth.
	APIKey string

	// Upload limits
	MaxUploadBytes int64

	// Session state
	SessionTTL time.Duration

	// Rendering
	DefaultScale float64

	// Optional YAML file overriding matcher thresholds.
	TuningPath string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		BackendURL:    envOr("DOCANCHOR_BACKEND_URL", "http://localhost:8000"),
		BackendAPIKey: os.Getenv("DOCANCHOR_BACKEND_API_KEY"),

		APIKey: os.Getenv("DOCANCHOR_API_KEY"),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		SessionTTL: envDuration("SESSION_TTL", 1*time.Hour),

		DefaultScale: envFloat("DEFAULT_VIEW_SCALE", 1.0),

		TuningPath: os.Getenv("MATCH_TUNING_PATH"),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 1 * time.Hour
	}
	if cfg.DefaultScale <= 0 {
		cfg.DefaultScale = 1.0
	}

	return cfg
}

func (c Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("DOCANCHOR_BACKEND_URL is required")
	}
	if c.DefaultScale <= 0 {
		return fmt.Errorf("DEFAULT_VIEW_SCALE must be positive")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
