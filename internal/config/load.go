package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidChannelOrder is returned when texture.channel_order is not bgra or rgba.
var ErrInvalidChannelOrder = errors.New("invalid texture channel order")

// ErrInvalidLogging is returned for an unknown logging.level or logging.format.
var ErrInvalidLogging = errors.New("invalid logging setting")

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	// Explicit path takes priority over the standard locations
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted silently.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Texture.ChannelOrder) {
	case "bgra", "rgba":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidChannelOrder, c.Texture.ChannelOrder)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: level %q", ErrInvalidLogging, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: format %q", ErrInvalidLogging, c.Logging.Format)
	}
	if c.Texture.CacheSize < 0 {
		c.Texture.CacheSize = 0
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./meshloader.yaml",
		DefaultPath(),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "MeshLoader")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "MeshLoader")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "meshloader")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "meshloader")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
