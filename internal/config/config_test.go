package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8000 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maieut.yaml")
	if err := os.WriteFile(path, []byte("port: 9100\nlog_level: debug\ndb_path: /tmp/m.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MAIEUT_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9100 || cfg.LogLevel != "debug" || cfg.DBPath != "/tmp/m.db" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maieut.yaml")
	if err := os.WriteFile(path, []byte("port: 9100\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MAIEUT_CONFIG", path)
	t.Setenv("MAIEUT_PORT", "9200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9200 {
		t.Errorf("port = %d, want env to win", cfg.Port)
	}
}

func TestLoadBadFile(t *testing.T) {
	t.Setenv("MAIEUT_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
