package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Backend base URL (Directus-style API)
	BaseURL string `envconfig:"FLEET_BASE_URL" default:"http://localhost:8055"`
	Env     string `envconfig:"FLEET_ENV" default:"development"`

	// Local state directory (session store, location spool)
	StateDir string `envconfig:"FLEET_STATE_DIR"`

	// Session configuration
	Session SessionConfig

	// HTTP client configuration
	HTTP HTTPConfig

	// Agent configuration
	Agent AgentConfig
}

// SessionConfig holds session lifecycle configuration
type SessionConfig struct {
	// RenewalMargin is how early the proactive refresh fires before
	// token expiry. Must stay below the shortest token TTL the backend
	// issues or every restore renews immediately.
	RenewalMargin time.Duration `envconfig:"FLEET_RENEWAL_MARGIN" default:"5m"`
}

// HTTPConfig holds HTTP client configuration
type HTTPConfig struct {
	Timeout   time.Duration `envconfig:"FLEET_HTTP_TIMEOUT" default:"15s"`
	RateLimit float64       `envconfig:"FLEET_HTTP_RATE_LIMIT" default:"10"`
	RateBurst int           `envconfig:"FLEET_HTTP_RATE_BURST" default:"20"`
}

// AgentConfig holds location agent configuration
type AgentConfig struct {
	ReportInterval time.Duration `envconfig:"FLEET_AGENT_INTERVAL" default:"30s"`
	VehicleID      string        `envconfig:"FLEET_AGENT_VEHICLE_ID"`
	DriverID       string        `envconfig:"FLEET_AGENT_DRIVER_ID"`
	PositionFile   string        `envconfig:"FLEET_AGENT_POSITION_FILE"`
	AdminAddr      string        `envconfig:"FLEET_AGENT_ADMIN_ADDR" default:":9465"`
	SpoolLimit     int           `envconfig:"FLEET_AGENT_SPOOL_LIMIT" default:"1000"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.StateDir = filepath.Join(home, ".truck-drive")
	}

	return &cfg, nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
