// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host     string `env:"APP_HOST" env-default:"0.0.0.0"`
	Port     string `env:"APP_PORT" env-default:"8080"`
	Env      string `env:"APP_ENV" env-default:"development"` // "development", "production", "testing"
	LogLevel string `env:"LOG_LEVEL"`

	// PostgreSQL connection
	DBHost     string `env:"POSTGRES_HOST" env-default:"localhost"`
	DBPort     string `env:"POSTGRES_PORT" env-default:"5432"`
	DBUser     string `env:"POSTGRES_USER" env-default:"eventcert"`
	DBPassword string `env:"POSTGRES_PASSWORD" env-default:"changeme"`
	DBName     string `env:"POSTGRES_DB" env-default:"eventcert"`

	// Valkey (Redis-compatible cache)
	ValkeyHost     string `env:"VALKEY_HOST" env-default:"localhost"`
	ValkeyPort     string `env:"VALKEY_PORT" env-default:"6379"`
	ValkeyPassword string `env:"VALKEY_PASSWORD"`

	// S3-compatible object storage
	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3Region        string `env:"S3_REGION" env-default:"fsn1"`
	S3AccessKey     string `env:"S3_ACCESS_KEY"`
	S3SecretKey     string `env:"S3_SECRET_KEY"`
	S3BucketPublic  string `env:"S3_BUCKET_PUBLIC" env-default:"eventcert-public"`
	S3BucketPrivate string `env:"S3_BUCKET_PRIVATE" env-default:"eventcert-private"`
	S3PublicURL     string `env:"S3_PUBLIC_URL"`

	// Outbound mail. Without an API key messages are logged instead.
	SendGridAPIKey  string `env:"SENDGRID_API_KEY"`
	MailFromName    string `env:"MAIL_FROM_NAME" env-default:"EventCert"`
	MailFromAddress string `env:"MAIL_FROM_ADDRESS" env-default:"noreply@eventcert.local"`

	// Comma-separated origins allowed to call the API from a browser.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:5173"`

	// Certificate editor and issuance
	EditorHistoryLimit int           `env:"EDITOR_HISTORY_LIMIT" env-default:"100"`
	EditorIdleTimeout  time.Duration `env:"EDITOR_IDLE_TIMEOUT" env-default:"2h"`
	IssueConcurrency   int           `env:"ISSUE_CONCURRENCY" env-default:"4"`

	// Legacy hosted project (importer only)
	SupabaseURL string `env:"SUPABASE_URL"`
	SupabaseKey string `env:"SUPABASE_KEY"`
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if cfg.EditorHistoryLimit < 1 {
		return nil, fmt.Errorf("EDITOR_HISTORY_LIMIT must be at least 1")
	}
	if cfg.EditorIdleTimeout <= 0 {
		return nil, fmt.Errorf("EDITOR_IDLE_TIMEOUT must be positive")
	}
	if cfg.IssueConcurrency < 1 {
		return nil, fmt.Errorf("ISSUE_CONCURRENCY must be at least 1")
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SlogLevel returns the configured log level. Development defaults to
// debug, everything else to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if c.IsDev() {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
