// Package config handles TempBox configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure for TempBox.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// API settings for the backend mail service
	API APIConfig `yaml:"api" mapstructure:"api"`

	// Accounts settings
	Accounts AccountsConfig `yaml:"accounts" mapstructure:"accounts"`

	// Listener settings for the live message channels
	Listener ListenerConfig `yaml:"listener" mapstructure:"listener"`

	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Notifications settings
	Notifications NotificationsConfig `yaml:"notifications" mapstructure:"notifications"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global TempBox settings.
type GlobalConfig struct {
	// DataDir is where TempBox stores its data (default: ~/.local/share/tempbox).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/tempbox).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// APIConfig contains backend mail service settings.
type APIConfig struct {
	// BaseURL is the root URL of the mail API.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// AccountsConfig contains account lifecycle settings.
type AccountsConfig struct {
	// MaxActive bounds the number of concurrently active accounts.
	// Activating beyond the bound raises an advisory instead of a request.
	MaxActive int `yaml:"max_active" mapstructure:"max_active"`
}

// ListenerConfig contains live-channel settings.
type ListenerConfig struct {
	// PollInterval is how often an account channel polls for events.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// ReconnectBackoff is the wait after a failed poll before retrying.
	ReconnectBackoff time.Duration `yaml:"reconnect_backoff" mapstructure:"reconnect_backoff"`

	// EventBuffer is the capacity of the shared inbound event channel.
	EventBuffer int `yaml:"event_buffer" mapstructure:"event_buffer"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeout is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// NotificationsConfig contains desktop notification settings.
type NotificationsConfig struct {
	// Enabled toggles new-message desktop notifications.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Sound plays the notification sound when delivering.
	Sound bool `yaml:"sound" mapstructure:"sound"`
}

// TUIConfig contains terminal UI settings.
type TUIConfig struct {
	// RefreshInterval is how often the TUI re-renders passive state.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`

	// ShowTimestamps toggles message timestamps in the inbox list.
	ShowTimestamps bool `yaml:"show_timestamps" mapstructure:"show_timestamps"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(home, ".local", "share", "tempbox"),
			ConfigDir: filepath.Join(home, ".config", "tempbox"),
		},
		API: APIConfig{
			BaseURL: "https://api.mail.tm",
			Timeout: 30 * time.Second,
		},
		Accounts: AccountsConfig{
			MaxActive: 3,
		},
		Listener: ListenerConfig{
			PollInterval:     5 * time.Second,
			ReconnectBackoff: 10 * time.Second,
			EventBuffer:      256,
		},
		Database: DatabaseConfig{
			Path:          filepath.Join(home, ".local", "share", "tempbox", "tempbox.db"),
			BusyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Sound:   true,
		},
		TUI: TUIConfig{
			RefreshInterval: 2 * time.Second,
			ShowTimestamps:  true,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Accounts.MaxActive <= 0 {
		return fmt.Errorf("accounts.max_active must be positive, got %d", c.Accounts.MaxActive)
	}
	if c.Listener.PollInterval <= 0 {
		return fmt.Errorf("listener.poll_interval must be positive, got %s", c.Listener.PollInterval)
	}
	if c.Listener.EventBuffer <= 0 {
		return fmt.Errorf("listener.event_buffer must be positive, got %d", c.Listener.EventBuffer)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// EnsureDirectories creates the data and config directories if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Global.DataDir, c.Global.ConfigDir, filepath.Dir(c.Database.Path)} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
