package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	t.Setenv("SERVICE_PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DEV_FAUCET", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8084" || cfg.DatabaseURL != "" || cfg.DevFaucet {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolve.yaml")
	if err := os.WriteFile(path, []byte("port: \"9000\"\ndatabase_url: postgres://file\ndev_faucet: true\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SERVICE_PORT", "9100")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DEV_FAUCET", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9100" {
		t.Fatalf("env should win over file, got port %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://file" {
		t.Fatalf("file value lost: %s", cfg.DatabaseURL)
	}
	if !cfg.DevFaucet {
		t.Fatalf("file dev_faucet lost")
	}
}

func TestBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolve.yaml")
	if err := os.WriteFile(path, []byte("port: [broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}
