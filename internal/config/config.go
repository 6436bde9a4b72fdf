// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/sethvargo/go-envconfig"
)

// Config holds all configuration for the client. Everything is optional: the
// API URL can be pasted at runtime, and both durable-storage providers can be
// absent, in which case uploads are processing-leg only.
type Config struct {
	// Backend settings. APIURL seeds the endpoint registry when set; the
	// session can still repoint at runtime.
	APIURL string `env:"VIDEOSEEK_API_URL" json:"api_url,omitempty"`

	// Cloudinary settings (durable storage, preferred when set)
	CloudinaryCloudName    string `env:"CLOUDINARY_CLOUD_NAME" json:"cloudinary_cloud_name,omitempty"`
	CloudinaryUploadPreset string `env:"CLOUDINARY_UPLOAD_PRESET" json:"cloudinary_upload_preset,omitempty"`

	// Optional S3 settings (durable storage fallback)
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Job and upload settings
	PollInterval time.Duration `env:"VIDEOSEEK_POLL_INTERVAL, default=2s" json:"poll_interval"`
	MaxUploadMiB int64         `env:"VIDEOSEEK_MAX_UPLOAD_MIB, default=500" json:"max_upload_mib"`

	// Storage settings
	SpoolDir string `env:"VIDEOSEEK_SPOOL_DIR" json:"spool_dir,omitempty"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// CloudinaryEnabled returns true if Cloudinary configuration is provided.
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryUploadPreset != ""
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMiB * 1024 * 1024
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs colorized human-readable logs for interactive use.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{APIURL: %s, CloudinaryCloudName: %s, S3Bucket: %s, S3Region: %s, PollInterval: %s, MaxUploadMiB: %d, SpoolDir: %s, LogFormat: %s, LogLevel: %s}",
		c.APIURL,
		c.CloudinaryCloudName,
		c.S3Bucket,
		c.S3Region,
		c.PollInterval,
		c.MaxUploadMiB,
		c.SpoolDir,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
