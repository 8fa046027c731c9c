// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the ETL configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults.
type Config struct {
	// Connections
	DatabaseURL    string `json:"database_url,omitempty"`     // PostgreSQL connection URL
	CensusBaseURL  string `json:"census_base_url,omitempty"`  // Census API base URL
	ScraperBaseURL string `json:"scraper_base_url,omitempty"` // Wage site base URL

	// HTTP behavior
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"` // Per-request timeout
	MaxRetries     int    `json:"max_retries,omitempty"`     // Attempts per request
	CacheDir       string `json:"cache_dir,omitempty"`       // Response cache directory

	// Cache expiry
	CensusCacheTTLDays  int `json:"census_cache_ttl_days,omitempty"`
	ScraperCacheTTLDays int `json:"scraper_cache_ttl_days,omitempty"`

	// Politeness and quality thresholds
	MinDelaySeconds float64 `json:"min_delay_seconds,omitempty"` // Lower bound on inter-request pause
	MaxDelaySeconds float64 `json:"max_delay_seconds,omitempty"` // Upper bound on inter-request pause
	MinSuccessRate  float64 `json:"min_success_rate,omitempty"`  // Per-state success fraction warning threshold (0.0-1.0)

	// Scope
	TargetStates []string `json:"target_states,omitempty"` // State abbreviations, or ["*"] for all

	// Logging
	LogLevel string `json:"log_level,omitempty"` // logrus level name
}

// Default returns the configuration used when no file overrides a field.
func Default() Config {
	return Config{
		CensusBaseURL:       "https://api.census.gov/data",
		ScraperBaseURL:      "https://livingwage.mit.edu",
		TimeoutSeconds:      30,
		MaxRetries:          3,
		CacheDir:            ".cache",
		CensusCacheTTLDays:  30,
		ScraperCacheTTLDays: 7,
		MinDelaySeconds:     2,
		MaxDelaySeconds:     5,
		MinSuccessRate:      0.95,
		TargetStates:        []string{"*"},
		LogLevel:            "info",
	}
}

// LoadConfig loads configuration from a JSON file and fills unset fields
// from defaults. An empty path yields the defaults alone. DATABASE_URL in
// the environment wins over the file when the file leaves it blank.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// Resolve path relative to current directory if not absolute
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("config error: 'timeout_seconds' must be positive")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("config error: 'max_retries' must be at least 1")
	}
	if c.MinDelaySeconds < 0 {
		return fmt.Errorf("config error: 'min_delay_seconds' must be non-negative")
	}
	if c.MaxDelaySeconds < c.MinDelaySeconds {
		return fmt.Errorf("config error: 'max_delay_seconds' must be at least 'min_delay_seconds'")
	}
	if c.MinSuccessRate < 0 || c.MinSuccessRate > 1 {
		return fmt.Errorf("config error: 'min_success_rate' must be between 0.0 and 1.0")
	}
	if len(c.TargetStates) == 0 {
		return fmt.Errorf("config error: 'target_states' must name at least one state or \"*\"")
	}
	return nil
}
