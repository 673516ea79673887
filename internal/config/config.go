package config

import (
	"path/filepath"
	"time"
)

// Config holds the application configuration.
type Config struct {
	// DataDir holds the database and the settings file unless their paths
	// are set explicitly.
	DataDir        string        `yaml:"data_dir"`
	DBPath         string        `yaml:"db_path"`
	SettingsPath   string        `yaml:"settings_path"`
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	NoProxy        string        `yaml:"no_proxy"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	TLS            TLSConfig     `yaml:"tls"`
}

// DefaultConfig returns the default configuration. DataDir is left empty and
// filled in by Load.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: 30 * time.Second,
		LogLevel:       "info",
		LogFormat:      "default",
	}
}

// DatabasePath returns the path of the record database.
func (c Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	return filepath.Join(c.DataDir, "restbench.db")
}

// SettingsFile returns the path of the settings file.
func (c Config) SettingsFile() string {
	if c.SettingsPath != "" {
		return c.SettingsPath
	}

	return filepath.Join(c.DataDir, "settings.yaml")
}
