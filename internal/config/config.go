// Package config handles domtuner configuration: a YAML file with defaults,
// overridden by DOMTUNER_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the top-level domtuner configuration.
type Config struct {
	Page        PageConfig        `yaml:"page"`
	Host        HostConfig        `yaml:"host"`
	Browser     BrowserConfig     `yaml:"browser"`
	Enforcement EnforcementConfig `yaml:"enforcement"`
	Delays      DelaysConfig      `yaml:"delays"`
	Storage     StorageConfig     `yaml:"storage"`
	Editor      EditorConfig      `yaml:"editor"`
	Debounce    DebounceConfig    `yaml:"debounce"`
	LogLevel    string            `yaml:"log_level"`
}

// PageConfig names the page the agent attaches to.
type PageConfig struct {
	URL string `yaml:"url"`
}

// HostConfig is the host page's selector and event catalog. The defaults
// target the supported media host.
type HostConfig struct {
	VideoSelector  string   `yaml:"video_selector"`
	ThumbSelector  string   `yaml:"thumb_selector"`
	AnchorSelector string   `yaml:"anchor_selector"`
	NavigateEvents []string `yaml:"navigate_events"`
	PageDataEvents []string `yaml:"page_data_events"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	// Remote is a devtools websocket URL to attach to. Empty launches a
	// local browser.
	Remote   string `yaml:"remote"`
	Stealth  bool   `yaml:"stealth"`
	Headless bool   `yaml:"headless"`
}

// EnforcementConfig tunes the rate enforcement loop.
type EnforcementConfig struct {
	Interval time.Duration `yaml:"interval"`
	Grace    time.Duration `yaml:"grace"`
}

// DelaysConfig tunes the retry and settle delays.
type DelaysConfig struct {
	MountRetry   time.Duration `yaml:"mount_retry"`
	Remount      time.Duration `yaml:"remount"`
	BlurReapply  time.Duration `yaml:"blur_reapply"`
	PopoverClose time.Duration `yaml:"popover_close"`
}

// StorageConfig configures the preference tiers.
type StorageConfig struct {
	RemoteURL  string        `yaml:"remote_url"`
	SessionID  string        `yaml:"session_id"`
	SQLitePath string        `yaml:"sqlite_path"`
	ProbeTTL   time.Duration `yaml:"probe_ttl"`
}

// EditorConfig configures the editor-facing HTTP API.
type EditorConfig struct {
	Listen string `yaml:"listen"`
}

// DebounceConfig controls mutation batching.
type DebounceConfig struct {
	Window    time.Duration `yaml:"window"`
	MaxBuffer int           `yaml:"max_buffer"`
}

// envOverrides are applied on top of the file. Only operationally relevant
// knobs are exposed; structural settings stay in the file.
type envOverrides struct {
	RemoteURL  string `env:"DOMTUNER_REMOTE_URL"`
	SQLitePath string `env:"DOMTUNER_DB_PATH"`
	Listen     string `env:"DOMTUNER_LISTEN"`
	LogLevel   string `env:"DOMTUNER_LOG_LEVEL"`
	PageURL    string `env:"DOMTUNER_PAGE_URL"`
}

// LoadFile reads a YAML configuration file, applies defaults, then
// environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration with environment overrides,
// used when no file is given.
func Default() (*Config, error) {
	var cfg Config
	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host.VideoSelector == "" {
		c.Host.VideoSelector = "video"
	}
	if c.Host.ThumbSelector == "" {
		c.Host.ThumbSelector = "ytd-thumbnail img"
	}
	if c.Host.AnchorSelector == "" {
		c.Host.AnchorSelector = ".ytp-right-controls"
	}
	if len(c.Host.NavigateEvents) == 0 {
		c.Host.NavigateEvents = []string{"yt-navigate-finish"}
	}
	if len(c.Host.PageDataEvents) == 0 {
		c.Host.PageDataEvents = []string{"yt-page-data-updated"}
	}
	if c.Enforcement.Interval <= 0 {
		c.Enforcement.Interval = time.Second
	}
	if c.Enforcement.Grace <= 0 {
		c.Enforcement.Grace = 5 * time.Second
	}
	if c.Delays.MountRetry <= 0 {
		c.Delays.MountRetry = time.Second
	}
	if c.Delays.Remount <= 0 {
		c.Delays.Remount = 500 * time.Millisecond
	}
	if c.Delays.BlurReapply <= 0 {
		c.Delays.BlurReapply = 500 * time.Millisecond
	}
	if c.Delays.PopoverClose <= 0 {
		c.Delays.PopoverClose = 300 * time.Millisecond
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "domtuner.db"
	}
	if c.Storage.ProbeTTL <= 0 {
		c.Storage.ProbeTTL = 30 * time.Second
	}
	if c.Editor.Listen == "" {
		c.Editor.Listen = "127.0.0.1:8090"
	}
	if c.Debounce.Window <= 0 {
		c.Debounce.Window = 250 * time.Millisecond
	}
	if c.Debounce.MaxBuffer <= 0 {
		c.Debounce.MaxBuffer = 1000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) applyEnv() error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	if ov.RemoteURL != "" {
		c.Storage.RemoteURL = ov.RemoteURL
	}
	if ov.SQLitePath != "" {
		c.Storage.SQLitePath = ov.SQLitePath
	}
	if ov.Listen != "" {
		c.Editor.Listen = ov.Listen
	}
	if ov.LogLevel != "" {
		c.LogLevel = ov.LogLevel
	}
	if ov.PageURL != "" {
		c.Page.URL = ov.PageURL
	}
	return nil
}
