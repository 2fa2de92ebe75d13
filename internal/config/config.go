package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the server settings, read from the environment. A .env
// file is loaded by the entrypoint before Load runs.
type Config struct {
	DatabaseURL        string
	StoragePath        string
	HTTPPort           string
	JWTSecret          string
	MaxConcurrentBatch int
	JobTimeout         time.Duration
	RetentionDays      int
	MaxUploadSizeMB    int64
	MaxUploadFiles     int
	LogLevel           string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		StoragePath:        envOr("STORAGE_PATH", "./storage"),
		HTTPPort:           envOr("HTTP_PORT", "8080"),
		JWTSecret:          envOr("JWT_SECRET", "fileforge-dev-secret"),
		MaxConcurrentBatch: 4,
		RetentionDays:      7,
		MaxUploadSizeMB:    100,
		MaxUploadFiles:     10,
		LogLevel:           envOr("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.MaxConcurrentBatch, err = envInt("MAX_CONCURRENT_BATCHES", cfg.MaxConcurrentBatch); err != nil {
		return nil, err
	}
	if cfg.RetentionDays, err = envInt("RETENTION_DAYS", cfg.RetentionDays); err != nil {
		return nil, err
	}
	timeoutSeconds, err := envInt("JOB_TIMEOUT_SECONDS", 0)
	if err != nil {
		return nil, err
	}
	cfg.JobTimeout = time.Duration(timeoutSeconds) * time.Second

	uploadMB, err := envInt("MAX_UPLOAD_SIZE_MB", int(cfg.MaxUploadSizeMB))
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadSizeMB = int64(uploadMB)

	return cfg, nil
}

// MaxUploadBytes is the per-file upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadSizeMB << 20
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
