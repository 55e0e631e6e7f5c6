// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the pipeline service.
type Config struct {
	Port            string
	DatabaseURL     string
	RedisURL        string
	StageCacheTTL   time.Duration
	RefreshInterval time.Duration
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	port := os.Getenv("PIPELINE_PORT")
	if port == "" {
		port = "8083"
	}

	cacheTTL, err := durationMinutes("STAGE_CACHE_TTL_MINUTES", 10)
	if err != nil {
		return nil, err
	}

	refresh, err := durationMinutes("STAGE_REFRESH_MINUTES", 5)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:            port,
		DatabaseURL:     dbURL,
		RedisURL:        redisURL,
		StageCacheTTL:   cacheTTL,
		RefreshInterval: refresh,
	}, nil
}

func durationMinutes(key string, def int) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(def) * time.Minute, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return time.Duration(n) * time.Minute, nil
}
