// Package config provides configuration management for the sidebar CLI.
package config

import (
	"time"

	"github.com/leapstack-labs/sidebar/pkg/core"
)

// Default configuration values.
const (
	DefaultStateFile      = ".sidebar/state.db"
	DefaultOutput         = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultPort           = 8765
	DefaultMaxHistory     = 50
	DefaultMaxViewers     = 1024
	DefaultWebhookTimeout = 5 * time.Second
)

// Config holds all CLI configuration options.
type Config struct {
	ProjectRoot  string         `koanf:"-"`
	StatePath    string         `koanf:"state_path"`
	DataFile     string         `koanf:"data_file"`
	Verbose      bool           `koanf:"verbose"`
	OutputFormat string         `koanf:"output"`
	UI           *UIConfig      `koanf:"ui"`
	Host         *HostConfig    `koanf:"host"`
	History      *HistoryConfig `koanf:"history"`
	Catalog      *CatalogConfig `koanf:"catalog"`
}

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Port          int    `koanf:"port"`
	AutoOpen      bool   `koanf:"auto_open"`
	Watch         bool   `koanf:"watch"`
	SessionSecret string `koanf:"session_secret"`
	MaxViewers    int    `koanf:"max_viewers"`
}

// HostConfig configures delivery of outbound messages to the host.
type HostConfig struct {
	// WebhookURL receives every outbound message as a JSON POST.
	WebhookURL string        `koanf:"webhook_url"`
	Timeout    time.Duration `koanf:"timeout"`
}

// HistoryConfig configures the persisted run history.
type HistoryConfig struct {
	// Max is how many runs the state database keeps.
	Max int `koanf:"max"`
}

// CatalogConfig replaces the built-in entries of the Providers tab.
// A list left unset keeps the built-in one.
type CatalogConfig struct {
	Context   []core.CatalogItem `koanf:"context"`
	Providers []core.CatalogItem `koanf:"providers"`
}

// DefaultUIConfig returns a UIConfig with default values.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		Port:       DefaultPort,
		AutoOpen:   true,
		Watch:      true,
		MaxViewers: DefaultMaxViewers,
	}
}

// GetUIConfig returns the UI config with defaults applied for any unset values.
func (c *Config) GetUIConfig() *UIConfig {
	if c.UI == nil {
		return DefaultUIConfig()
	}
	ui := *c.UI
	if ui.Port == 0 {
		ui.Port = DefaultPort
	}
	if ui.MaxViewers == 0 {
		ui.MaxViewers = DefaultMaxViewers
	}
	return &ui
}

// GetHostConfig returns the host config with defaults applied.
func (c *Config) GetHostConfig() *HostConfig {
	host := HostConfig{Timeout: DefaultWebhookTimeout}
	if c.Host != nil {
		host = *c.Host
		if host.Timeout == 0 {
			host.Timeout = DefaultWebhookTimeout
		}
	}
	return &host
}

// MaxHistory returns the persisted history limit.
func (c *Config) MaxHistory() int {
	if c.History == nil || c.History.Max == 0 {
		return DefaultMaxHistory
	}
	return c.History.Max
}
