package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for the shopgate client and gateway.
type Config struct {
	UpstreamURL string `yaml:"upstream_url"` // Storefront backend base URL
	Addr        string `yaml:"addr"`         // Gateway listen address
	StateDir    string `yaml:"state_dir"`    // Session state directory (default ~/.shopgate)
	LogLevel    string `yaml:"log_level"`    // debug, info, warn, error
	LogFormat   string `yaml:"log_format"`   // text, json
}

// Default returns sensible defaults. StateDir is left empty here and
// resolved against the home directory by ResolveStateDir.
func Default() Config {
	return Config{
		UpstreamURL: "https://api.shopgate.example",
		Addr:        ":8080",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load builds a Config from defaults, an optional YAML file, and the
// SHOPGATE_UPSTREAM environment variable, in increasing precedence.
// An empty path means "the default location if it exists".
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		if dir, err := defaultStateDir(); err == nil {
			candidate := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if upstream := os.Getenv("SHOPGATE_UPSTREAM"); upstream != "" {
		cfg.UpstreamURL = upstream
	}

	return cfg, nil
}

// ResolveStateDir returns the session state directory, creating it if
// needed. An explicitly configured StateDir wins over ~/.shopgate.
func (c *Config) ResolveStateDir() (string, error) {
	dir := c.StateDir
	if dir == "" {
		d, err := defaultStateDir()
		if err != nil {
			return "", err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create state dir %s: %w", dir, err)
	}
	return dir, nil
}

// DBPath returns the durable store location inside the state directory.
func (c *Config) DBPath() (string, error) {
	dir, err := c.ResolveStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "shopgate.db"), nil
}

func defaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".shopgate"), nil
}
