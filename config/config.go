package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config holds settings read from the environment. Flags override these
// on a per-command basis; nothing here is required until a command that
// needs it actually runs.
type Config struct {
	// MPS credentials, used by the mps command. Never passed as flags so
	// they stay out of shell history.
	MPSUsername string `env:"ARIA_MPS_USERNAME"`
	MPSPassword string `env:"ARIA_MPS_PASSWORD"`

	// Default device endpoint for connect/record/stream/subscribe.
	DeviceIP    string `env:"ARIA_DEVICE_IP"`
	ControlPort int    `env:"ARIA_CONTROL_PORT" envDefault:"8085"`
	StreamPort  int    `env:"ARIA_STREAM_PORT" envDefault:"7667"`

	// Session catalog database location.
	CatalogPath string `env:"ARIACTL_CATALOG"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment config: %w", err)
	}

	if cfg.CatalogPath == "" {
		cfg.CatalogPath = defaultCatalogPath()
	}

	return cfg, nil
}

// HasMPSCredentials reports whether both MPS credentials are set.
func (c *Config) HasMPSCredentials() bool {
	return c.MPSUsername != "" && c.MPSPassword != ""
}

func defaultCatalogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ariactl-catalog.db"
	}
	return filepath.Join(home, ".ariactl", "catalog.db")
}
