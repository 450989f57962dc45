package domtuner

import (
	"github.com/hazyhaar/domtuner/internal/config"
)

// Config is the top-level domtuner configuration. Re-exported from internal.
type Config = config.Config

// HostConfig is the host page's selector and event catalog.
type HostConfig = config.HostConfig

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// StorageConfig configures the preference tiers.
type StorageConfig = config.StorageConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns the built-in configuration with environment
// overrides applied.
func DefaultConfig() (*Config, error) {
	return config.Default()
}
