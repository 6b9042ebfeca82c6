package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Config holds the process-wide settings for one run. It is built once at
// startup and treated as immutable by the pipeline.
type Config struct {
	APIKey        string
	Model         string
	MaxFileSizeMB int
	IncludeImages bool
	Verbose       bool
}

// Load reads configuration from environment variables.
// MISTRAL_API_KEY is required; everything else has a default.
func Load() (*Config, error) {
	cfg := &Config{
		APIKey: os.Getenv("MISTRAL_API_KEY"),
		Model:  getEnv("MISTRAL_MODEL", "mistral-ocr-latest"),
	}

	if cfg.APIKey == "" {
		return nil, errors.New("MISTRAL_API_KEY not found in environment variables; set it or create a .env file")
	}

	var err error
	cfg.MaxFileSizeMB, err = getEnvInt("MAX_FILE_SIZE_MB", 50)
	if err != nil {
		return nil, fmt.Errorf("MAX_FILE_SIZE_MB: %w", err)
	}
	if cfg.MaxFileSizeMB < 1 {
		return nil, errors.New("MAX_FILE_SIZE_MB must be > 0")
	}

	cfg.IncludeImages = getEnv("INCLUDE_IMAGES", "true") == "true"
	cfg.Verbose = getEnv("VERBOSE", "false") == "true"

	return cfg, nil
}

// MaxFileSizeBytes returns the per-file size ceiling in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}
