package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Dir returns the configuration directory, ~/.config/restbench.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".config", "restbench"), nil
}

// Load loads configuration from ~/.config/restbench/config.yaml. A missing
// or malformed file yields the defaults.
func Load() Config {
	dir, err := Dir()
	if err != nil {
		return DefaultConfig()
	}

	return LoadFile(filepath.Join(dir, "config.yaml"), dir)
}

// LoadFile loads configuration from path. dataDir is used when the file does
// not set data_dir.
func LoadFile(path, dataDir string) Config {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	loaded := cfg
	if err = yaml.Unmarshal(data, &loaded); err != nil {
		return cfg
	}
	if loaded.DataDir == "" {
		loaded.DataDir = dataDir
	}

	return loaded
}
