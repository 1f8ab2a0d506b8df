// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/favbadge/internal/badge"
)

// Default configuration values.
const (
	DefaultListen     = "127.0.0.1:8787"
	DefaultMinUrgency = "normal"
)

// Config represents the favbadge configuration.
type Config struct {
	Source  string        `toml:"source" yaml:"source"` // Icon path, file:// URL or data URI
	Badge   BadgeConfig   `toml:"badge" yaml:"badge"`
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Trigger TriggerConfig `toml:"trigger" yaml:"trigger"`
	Watch   WatchConfig   `toml:"watch" yaml:"watch"`
}

// BadgeConfig holds the badge appearance and blink settings.
type BadgeConfig struct {
	Size     int      `toml:"size" yaml:"size"`         // Badge radius in pixels
	Position string   `toml:"position" yaml:"position"` // top-left, top-right, bottom-left, bottom-right, center
	Color    string   `toml:"color" yaml:"color"`       // CSS name or hex
	Speed    Duration `toml:"speed" yaml:"speed"`       // Full blink period
	Blink    bool     `toml:"blink" yaml:"blink"`
	Format   string   `toml:"format" yaml:"format"` // png, ico
}

// ServerConfig holds the HTTP host settings.
type ServerConfig struct {
	Listen string `toml:"listen" yaml:"listen"`
}

// TriggerConfig controls notifying from desktop notifications.
type TriggerConfig struct {
	DBus          bool     `toml:"dbus" yaml:"dbus"`
	Apps          []string `toml:"apps" yaml:"apps"`                     // Empty = all applications
	MinUrgency    string   `toml:"min_urgency" yaml:"min_urgency"`       // low, normal, critical
	SkipTransient bool     `toml:"skip_transient" yaml:"skip_transient"` // Ignore notifications with the transient hint
}

// WatchConfig controls reloading the icon when its file changes.
type WatchConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	opts := badge.DefaultOptions()
	return &Config{
		Badge: BadgeConfig{
			Size:     opts.Size,
			Position: string(opts.Position),
			Color:    opts.Color,
			Speed:    Duration(opts.Speed),
			Blink:    opts.Blink,
			Format:   string(opts.Format),
		},
		Server: ServerConfig{
			Listen: DefaultListen,
		},
		Trigger: TriggerConfig{
			DBus:       false,
			MinUrgency: DefaultMinUrgency,
		},
		Watch: WatchConfig{
			Enabled: true,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "favbadge", "config.toml")
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = toml.Marshal(c)
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// BadgeOptions converts the badge section to badge.Options.
// Position names are accepted in any casing and with - or _ separators.
func (c *Config) BadgeOptions() (badge.Options, error) {
	pos, err := badge.ParsePosition(c.Badge.Position)
	if err != nil {
		return badge.Options{}, err
	}

	return badge.Options{
		Size:     c.Badge.Size,
		Position: pos,
		Color:    c.Badge.Color,
		Speed:    c.Badge.Speed.Duration(),
		Blink:    c.Badge.Blink,
		Format:   badge.Format(strings.ToLower(c.Badge.Format)),
	}, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	opts, err := c.BadgeOptions()
	if err != nil {
		return fmt.Errorf("badge: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("badge: %w", err)
	}

	switch strings.ToLower(c.Trigger.MinUrgency) {
	case "", "low", "normal", "critical":
	default:
		return fmt.Errorf("trigger: invalid min_urgency %q (want low, normal or critical)", c.Trigger.MinUrgency)
	}

	return nil
}
