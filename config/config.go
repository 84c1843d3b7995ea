// Package config parses the server's TOML configuration file. All keys
// are optional and have defaults, matching the historical keybear layout
// under /var/lib/keybear.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Defaults, carried from the original project's layout.
const (
	DefaultConfigPath   = "/var/lib/keybear/config.toml"
	DefaultKeyPath      = "/var/lib/keybear/key"
	DefaultDatabasePath = "/var/lib/keybear/db"
	DefaultServerPort   = 52477
)

// Config is the application configuration. All fields are optional in the
// TOML source; accessors fill in defaults.
type Config struct {
	KeyPath      string       `toml:"key_path"`
	DatabasePath string       `toml:"database_path"`
	Server       ServerConfig `toml:"server"`
}

// ServerConfig holds the fields nested under the [server] table.
type ServerConfig struct {
	Port int `toml:"port"`
}

// FromDefaultFileOrEmpty loads the config from DefaultConfigPath if it
// exists, or returns a zero-value Config (so every accessor falls back to
// its default) if it does not.
func FromDefaultFileOrEmpty() (Config, error) {
	if _, err := os.Stat(DefaultConfigPath); os.IsNotExist(err) {
		return Config{}, nil
	}
	return FromFile(DefaultConfigPath)
}

// FromFile loads and parses the config at path.
func FromFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read configuration file %q: %w", path, err)
	}
	return FromString(string(data))
}

// FromString parses TOML configuration text.
func FromString(text string) (Config, error) {
	var cfg Config
	if _, err := toml.Decode(text, &cfg); err != nil {
		return cfg, fmt.Errorf("parse configuration: %w", err)
	}
	return cfg, nil
}

// ResolvedKeyPath returns KeyPath, or DefaultKeyPath if unset.
func (c Config) ResolvedKeyPath() string {
	if c.KeyPath != "" {
		return c.KeyPath
	}
	return DefaultKeyPath
}

// ResolvedDatabasePath returns DatabasePath, or DefaultDatabasePath if unset.
func (c Config) ResolvedDatabasePath() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return DefaultDatabasePath
}

// ResolvedServerPort returns Server.Port, or DefaultServerPort if unset.
func (c Config) ResolvedServerPort() int {
	if c.Server.Port != 0 {
		return c.Server.Port
	}
	return DefaultServerPort
}
