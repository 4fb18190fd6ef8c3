package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.BalanceSyncInterval != 24*time.Hour {
		t.Fatalf("expected 24h balance sync interval, got %v", cfg.BalanceSyncInterval)
	}
	if !cfg.RunMigrations {
		t.Fatal("expected migrations enabled by default")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "addr: \":9000\"\nrateLimitPerMinute: 10\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("APP_ADDR", ":7000")

	cfg := Load()
	if cfg.Addr != ":7000" {
		t.Fatalf("env should win over file, got %q", cfg.Addr)
	}
	if cfg.RateLimitPerMinute != 10 {
		t.Fatalf("file value not applied, got %d", cfg.RateLimitPerMinute)
	}
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database url")
	}

	cfg.DatabaseURL = "postgres://localhost/peopleops"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Environment = "production"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty JWT secret in production")
	}

	cfg.JWTSecret = "secret"
	cfg.SeedAdminPassword = "ChangeMe123"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.EmailEnabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when email enabled without SMTP host")
	}
}
