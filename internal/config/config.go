// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"storybook/internal/assets"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache). Caching is skipped when ValkeyHost is empty.
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// Local asset storage
	StorageRoot       string
	TempImagesDir     string
	TemplateImagesDir string
	UploadsDir        string
	PreviewsDir       string
	PDFsDir           string

	// Maintenance and limits
	PurgeMaxAgeDays int
	PurgeInterval   time.Duration
	MaxUploadMB     int

	// Request budgets per client over RateLimitWindow. Zero disables a budget.
	UploadRateLimit int
	StoryRateLimit  int
	RateLimitWindow time.Duration

	// PublicBaseURL is where this server is reachable; used in share links.
	PublicBaseURL string

	// S3-compatible object storage for finished books (optional)
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode or a numeric value does not parse.
func Load() (*Config, error) {
	root := envOrDefault("STORAGE_DIR", "./storage")

	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "storybook"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "storybook"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		StorageRoot:       root,
		TempImagesDir:     envOrDefault("TEMP_IMAGES_DIR", filepath.Join(root, "temp-images")),
		TemplateImagesDir: envOrDefault("TEMPLATE_IMAGES_DIR", filepath.Join(root, "template-images")),
		UploadsDir:        envOrDefault("UPLOADS_DIR", filepath.Join(root, "uploads")),
		PreviewsDir:       envOrDefault("PREVIEWS_DIR", filepath.Join(root, "previews")),
		PDFsDir:           envOrDefault("PDFS_DIR", filepath.Join(root, "pdfs")),

		PublicBaseURL: envOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "fsn1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    envOrDefault("S3_BUCKET", "storybook-documents"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),
	}

	var err error
	if cfg.PurgeMaxAgeDays, err = envInt("PURGE_MAX_AGE_DAYS", 1); err != nil {
		return nil, err
	}
	if cfg.MaxUploadMB, err = envInt("MAX_UPLOAD_MB", 10); err != nil {
		return nil, err
	}
	if cfg.PurgeInterval, err = envDuration("PURGE_INTERVAL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.UploadRateLimit, err = envInt("UPLOAD_RATE_LIMIT", 30); err != nil {
		return nil, err
	}
	if cfg.StoryRateLimit, err = envInt("STORY_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = envDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, err
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
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

// AssetDirs returns the storage directories in the shape the resolver takes.
func (c *Config) AssetDirs() assets.Dirs {
	return assets.Dirs{
		RecentUploads:  c.TempImagesDir,
		TemplateAssets: c.TemplateImagesDir,
		Uploads:        c.UploadsDir,
		Previews:       c.PreviewsDir,
		Documents:      c.PDFsDir,
	}
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
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
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}
