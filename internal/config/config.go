// Package config loads and saves the YAML configuration file. A missing file
// is created with defaults on first run.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfig = "NUTQ_CONFIG"
	EnvDB     = "NUTQ_DB"
	EnvToken  = "NUTQ_TOKEN"

	DefaultServerURL       = "https://nutq.app"
	DefaultSaveInterval    = 5 * time.Second
	DefaultNotificationCap = 32
)

// Sentinels mirrors the control strings the remote sends in place of data.
type Sentinels struct {
	Taken    string `yaml:"taken"`
	Stealing string `yaml:"stealing"`
}

type Config struct {
	// ServerURL is the base for HTTP requests (steal, device, bucket fetch).
	ServerURL string `yaml:"server_url"`
	// WSURL is the base for the update socket. Derived from ServerURL when empty.
	WSURL  string `yaml:"ws_url"`
	Bucket string `yaml:"bucket"`
	Token  string `yaml:"token"`

	DBPath string `yaml:"db_path"`

	SaveInterval    time.Duration `yaml:"save_interval"`
	NotificationCap int           `yaml:"notification_cap"`
	// Timezone is an IANA name used for display and weekday backup keys.
	Timezone string `yaml:"timezone"`

	AutoReacquire bool      `yaml:"auto_reacquire"`
	Sentinels     Sentinels `yaml:"sentinels"`

	// MetricsListen enables a /metrics endpoint during `nutq sync`.
	MetricsListen string `yaml:"metrics_listen,omitempty"`
}

// DefaultDir is ~/.nutq.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".nutq"), nil
}

// DefaultPath resolves the config file path from NUTQ_CONFIG or ~/.nutq.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func DefaultConfig() *Config {
	c := &Config{AutoReacquire: true}
	c.Normalize()
	return c
}

// Normalize fills zero values so older or partial files still work.
func (c *Config) Normalize() {
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	if c.WSURL == "" {
		c.WSURL = wsFromHTTP(c.ServerURL)
	}
	if c.DBPath == "" {
		if dir, err := DefaultDir(); err == nil {
			c.DBPath = filepath.Join(dir, "nutq.db")
		}
	}
	if c.SaveInterval <= 0 {
		c.SaveInterval = DefaultSaveInterval
	}
	if c.NotificationCap <= 0 {
		c.NotificationCap = DefaultNotificationCap
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Sentinels.Taken == "" {
		c.Sentinels.Taken = "taken"
	}
	if c.Sentinels.Stealing == "" {
		c.Sentinels.Stealing = "stealing"
	}
}

// Location returns the configured zone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func wsFromHTTP(u string) string {
	switch {
	case len(u) >= 8 && u[:8] == "https://":
		return "wss://" + u[8:]
	case len(u) >= 7 && u[:7] == "http://":
		return "ws://" + u[7:]
	}
	return u
}

// Load reads the YAML file at path, writing a default one (0600) when it does
// not exist yet. Environment overrides are applied after reading and are
// never written back.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		cfg.Normalize()
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDB); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Token = v
	}
}

// Save writes cfg atomically via a temp file in the same directory.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".nutq-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
