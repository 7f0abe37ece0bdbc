// Package config internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration, loaded from environment
// variables with sensible offline-friendly defaults
type Config struct {
	// Addr is the listen address for the HTTP server
	Addr string `env:"RATEVAULT_ADDR" envDefault:":8080"`

	// DataDir is where the structured (badger) store lives
	DataDir string `env:"RATEVAULT_DATA_DIR" envDefault:"data"`

	// FallbackDir is where the flat fallback store writes its files
	FallbackDir string `env:"RATEVAULT_FALLBACK_DIR" envDefault:"data-flat"`

	// AssetCacheDir is the root of the versioned asset generations
	AssetCacheDir string `env:"RATEVAULT_ASSET_CACHE_DIR" envDefault:"asset-cache"`

	// AssetOrigin is the upstream origin the agent fetches application
	// assets from
	AssetOrigin string `env:"RATEVAULT_ASSET_ORIGIN" envDefault:"http://localhost:9000"`

	// AssetManifest is the ordered list of asset paths cached at install
	AssetManifest []string `env:"RATEVAULT_ASSET_MANIFEST" envSeparator:"," envDefault:"/,/index.html,/offline.html,/app.js,/app.css,/favicon.ico"`

	// CachePolicy selects the agent fetch policy: cache-first or
	// network-first
	CachePolicy string `env:"RATEVAULT_CACHE_POLICY" envDefault:"cache-first"`

	// Mode is the deployment mode: development or production
	Mode string `env:"RATEVAULT_MODE" envDefault:"production"`

	// Version tags the current asset generation
	Version string `env:"RATEVAULT_VERSION" envDefault:"dev"`

	// BuildVersion is an optional finer-grained build identifier
	BuildVersion string `env:"RATEVAULT_BUILD_VERSION" envDefault:""`

	// Provider is the initially active rate provider
	Provider string `env:"RATEVAULT_PROVIDER" envDefault:"frankfurter"`

	// HTTPTimeout bounds every outbound provider and asset fetch.
	// Stalled requests would otherwise delay fallback-to-cache
	// indefinitely.
	HTTPTimeout time.Duration `env:"RATEVAULT_HTTP_TIMEOUT" envDefault:"10s"`

	// LogLevel is the minimum level emitted by the JSON logger
	LogLevel string `env:"RATEVAULT_LOG_LEVEL" envDefault:"INFO"`
}

// Load parses configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
