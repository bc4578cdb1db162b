// Package config handles XDG configuration directory, settings file and session token.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "lockin"

	// SettingsFile is the YAML settings filename.
	SettingsFile = "config.yaml"

	// SessionFile is the stored session token filename.
	SessionFile = "session.json"

	// DBFile is the local state database filename.
	DBFile = "lockin.db"

	// DefaultAPIURL is used when config.yaml does not set api_url.
	DefaultAPIURL = "http://localhost:8000/lockin"

	// DefaultSyncInterval is the period between background sync cycles.
	DefaultSyncInterval = 5 * time.Second

	// DefaultRetryDelay is the wait between attempts of a failed remote call.
	DefaultRetryDelay = 2 * time.Second
)

// Settings holds values read from config.yaml.
type Settings struct {
	APIURL       string        `yaml:"api_url"`
	RefreshURL   string        `yaml:"refresh_url"`
	Username     string        `yaml:"username"`
	SyncInterval time.Duration `yaml:"sync_interval"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	LogJSON      bool          `yaml:"log_json"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	Settings Settings
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/lockin or $HOME/.config/lockin.
// Settings are loaded from config.yaml when present.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir, Settings: DefaultSettings()}
	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultSettings returns the settings used when config.yaml is absent.
func DefaultSettings() Settings {
	return Settings{
		APIURL:       DefaultAPIURL,
		SyncInterval: DefaultSyncInterval,
		RetryDelay:   DefaultRetryDelay,
	}
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

func (c *Config) loadSettings() error {
	data, err := os.ReadFile(c.SettingsPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", SettingsFile, err)
	}
	if err := yaml.Unmarshal(data, &c.Settings); err != nil {
		return fmt.Errorf("invalid %s: %w", SettingsFile, err)
	}

	defaults := DefaultSettings()
	if c.Settings.APIURL == "" {
		c.Settings.APIURL = defaults.APIURL
	}
	if c.Settings.SyncInterval <= 0 {
		c.Settings.SyncInterval = defaults.SyncInterval
	}
	if c.Settings.RetryDelay <= 0 {
		c.Settings.RetryDelay = defaults.RetryDelay
	}
	return nil
}

// SaveSettings writes the current settings to config.yaml.
func (c *Config) SaveSettings() error {
	if err := c.EnsureDir(); err != nil {
		return err
	}
	data, err := yaml.Marshal(&c.Settings)
	if err != nil {
		return err
	}
	return os.WriteFile(c.SettingsPath(), data, 0600)
}

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// SessionPath returns the path to the stored session token file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// DBPath returns the path to the local state database.
func (c *Config) DBPath() string {
	return filepath.Join(c.Dir, DBFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasSession checks if the session file exists.
func (c *Config) HasSession() bool {
	_, err := os.Stat(c.SessionPath())
	return err == nil
}

// LoadSession reads the stored session token.
func (c *Config) LoadSession() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.SessionPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", SessionFile, err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", SessionFile, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("invalid %s: no access token", SessionFile)
	}
	return &token, nil
}

// SaveSession saves a session token with mode 0600.
func (c *Config) SaveSession(token *oauth2.Token) error {
	if err := c.EnsureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.SessionPath(), data, 0600)
}

// RemoveSession deletes the session file.
func (c *Config) RemoveSession() error {
	return os.Remove(c.SessionPath())
}
