// Package config loads the httpxfer command's settings from the
// environment. Every variable carries the HTTPXFER_ prefix.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const prefix = "HTTPXFER"

// Config struct for environment variables.
type Config struct {
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"INFO"`
	UserAgent      string        `envconfig:"USER_AGENT" default:"httpxfer/1.0"`
	Timeout        time.Duration `envconfig:"TIMEOUT" default:"0s"`
	Grace          time.Duration `envconfig:"GRACE" default:"2s"`
	MaxParallel    int           `envconfig:"MAX_PARALLEL" default:"4"`
	BufferSize     int           `envconfig:"BUFFER_SIZE" default:"16384"`
	DownloadSpeed  uint64        `envconfig:"DOWNLOAD_SPEED" default:"0"`
	UploadSpeed    uint64        `envconfig:"UPLOAD_SPEED" default:"0"`
	FollowRedirect bool          `envconfig:"FOLLOW_REDIRECTS" default:"true"`
	Progress       bool          `envconfig:"PROGRESS" default:"false"`

	Throttle struct {
		RPS   int `envconfig:"RPS" default:"0"`
		Burst int `envconfig:"BURST" default:"1"`
	}
}

// Load reads environment variables and populates the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	if cfg.BufferSize <= 0 {
		return nil, fmt.Errorf("buffer size must be greater than zero, got %d", cfg.BufferSize)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative, got %v", cfg.Timeout)
	}
	if cfg.Grace < 0 {
		return nil, fmt.Errorf("grace must not be negative, got %v", cfg.Grace)
	}

	return &cfg, nil
}

// SlogLevel maps LogLevel onto a slog.Level, defaulting to INFO.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Usage writes the recognised variables to stdout.
func Usage() error {
	var cfg Config
	return envconfig.Usage(prefix, &cfg)
}
