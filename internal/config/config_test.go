package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.UpstreamURL == "" {
		t.Error("expected a default upstream URL")
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("logging defaults = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "upstream_url: https://shop.example\naddr: \":9090\"\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.UpstreamURL != "https://shop.example" {
		t.Errorf("UpstreamURL = %q", cfg.UpstreamURL)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	// Unset keys keep their defaults.
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q", cfg.LogFormat)
	}
}

func TestLoad_EnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("upstream_url: https://from-file.example\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SHOPGATE_UPSTREAM", "https://from-env.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.UpstreamURL != "https://from-env.example" {
		t.Errorf("UpstreamURL = %q, env must win", cfg.UpstreamURL)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("an explicitly named missing file must fail")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("upstream_url: [broken\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed YAML must fail")
	}
}

func TestResolveStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	cfg := Config{StateDir: dir}

	got, err := cfg.ResolveStateDir()
	if err != nil {
		t.Fatalf("ResolveStateDir failed: %v", err)
	}
	if got != dir {
		t.Errorf("got %q, want %q", got, dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("state dir not created: %v", err)
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		t.Fatalf("DBPath failed: %v", err)
	}
	if dbPath != filepath.Join(dir, "shopgate.db") {
		t.Errorf("DBPath = %q", dbPath)
	}
}
