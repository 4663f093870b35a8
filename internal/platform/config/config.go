// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (store client, Redis) via constructors.
  - Split Loading: The CLI only needs [StoreConfig] and [MirrorConfig], loaded by [LoadStore].
*/
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// StoreConfig locates the GitHub repository used as the content store.
type StoreConfig struct {
	Owner   string `env:"GITHUB_OWNER,required"`
	Repo    string `env:"GITHUB_REPO,required"`
	Token   string `env:"GITHUB_TOKEN,required"`
	Branch  string `env:"GITHUB_BRANCH"   envDefault:"main"`
	APIURL  string `env:"GITHUB_API_URL"  envDefault:"https://api.github.com"`
	RateRPS int    `env:"GITHUB_RATE_LIMIT_RPS" envDefault:"10"`

	// Document paths inside the repository.
	ManifestPath       string `env:"MANIFEST_PATH"        envDefault:"manga.json"`
	PendingDeletesPath string `env:"PENDING_DELETES_PATH" envDefault:"pending_deletes.json"`
	ContentRoot        string `env:"CONTENT_ROOT"         envDefault:"content"`
}

// MirrorConfig holds the public base URLs pages are served from.
type MirrorConfig struct {
	// SiteURL serves live chapters under <site>/content/...
	SiteURL string `env:"SITE_URL,required"`
	// WorkerURL is the primary mirror for archived chapters.
	WorkerURL string `env:"WORKER_URL"`
	// BackupURL is the cold backup mirror for archived chapters.
	BackupURL string `env:"BACKUP_URL"`
	// LibraryURLs are the manifest sources tried in order by reader clients.
	LibraryURLs []string `env:"LIBRARY_URLS" envSeparator:","`
}

// Config holds all runtime configuration for the mangashelf API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	Store  StoreConfig
	Mirror MirrorConfig

	// Relational Database (PostgreSQL), optional. Without it the audit
	// trail is written to the structured log only.
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis), optional. Without it presence is disabled and
	// the manifest cache is not shared.
	RedisURL string `env:"REDIS_URL"`

	// Cryptographic keys for admin token signing
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`

	// AdminPasswordHash is the bcrypt hash checked by the admin login.
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH,required"`

	// UploaderPasswordHash enables a second login limited to uploads.
	UploaderPasswordHash string `env:"UPLOADER_PASSWORD_HASH"`

	// Comment attachment image host
	ImageHostKey string `env:"IMGBB_API_KEY"`
	ImageHostURL string `env:"IMGBB_UPLOAD_URL" envDefault:"https://api.imgbb.com/1/upload"`

	// Cross-Origin Resource Sharing
	AllowedOriginSuffix string `env:"ALLOWED_ORIGIN_SUFFIX"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	cfg.Mirror.normalize()
	return cfg, nil
}

// StoreOnly is the subset of configuration needed by command-line tooling.
type StoreOnly struct {
	Debug  bool `env:"DEBUG" envDefault:"false"`
	Store  StoreConfig
	Mirror MirrorConfig
}

// LoadStore parses only the store and mirror settings.
func LoadStore() (*StoreOnly, error) {
	cfg := &StoreOnly{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	cfg.Mirror.normalize()
	return cfg, nil
}

// normalize trims trailing slashes so URL joins stay predictable.
func (m *MirrorConfig) normalize() {
	m.SiteURL = strings.TrimRight(m.SiteURL, "/")
	m.WorkerURL = strings.TrimRight(m.WorkerURL, "/")
	m.BackupURL = strings.TrimRight(m.BackupURL, "/")
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// OriginAllowed reports whether a CORS origin matches the configured suffix.
func (c *Config) OriginAllowed(origin string) bool {
	return c.AllowedOriginSuffix != "" && strings.HasSuffix(origin, c.AllowedOriginSuffix)
}
