// Package config holds client settings sourced from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Settings configures the API client. Values are read from LUMA_*
// environment variables, typically via a .env file.
type Settings struct {
	BaseURL     string        `envconfig:"BASE_URL" default:"https://webapp.engineeringlumalabs.com/api/v2/"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	// CacheDir overrides where the credential cache lives. Empty means
	// the per-user config directory.
	CacheDir string `envconfig:"CACHE_DIR"`
}

// Load reads settings from the environment.
func Load() (Settings, error) {
	var s Settings
	if err := envconfig.Process("luma", &s); err != nil {
		return Settings{}, fmt.Errorf("loading config: %w", err)
	}
	return s, nil
}
