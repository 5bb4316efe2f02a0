package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreBackend != StoreFile {
		t.Fatalf("expected file backend, got %s", cfg.StoreBackend)
	}
	if cfg.GuardThresholdPercent.String() != "15" || cfg.DefaultSendAmount.String() != "25" {
		t.Fatalf("unexpected guard defaults %s %s", cfg.GuardThresholdPercent, cfg.DefaultSendAmount)
	}
	if cfg.RequestRetention != 720*time.Hour {
		t.Fatalf("expected 720h retention, got %s", cfg.RequestRetention)
	}
	if !cfg.SeedSampleContacts || cfg.LoginAttemptsPerMin != 5 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("GUARD_THRESHOLD_PERCENT", "20.5")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("SHUTDOWN_TIMEOUT", "1m")
	t.Setenv("IDEMPOTENCY_TTL", "90s")
	t.Setenv("SEED_SAMPLE_CONTACTS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GuardThresholdPercent.String() != "20.5" {
		t.Fatalf("unexpected threshold %s", cfg.GuardThresholdPercent)
	}
	if cfg.ShutdownPeriod != 3*time.Second {
		t.Fatalf("seconds variable should win, got %s", cfg.ShutdownPeriod)
	}
	if cfg.IdempotencyTTL != 90*time.Second {
		t.Fatalf("unexpected ttl %s", cfg.IdempotencyTTL)
	}
	if cfg.SeedSampleContacts {
		t.Fatalf("expected seeding disabled")
	}
}

func TestLoadRequiresBackingServices(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("REDIS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected REDIS_URL to be required in production")
	}

	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected DATABASE_URL to be required for postgres")
	}

	t.Setenv("STORE_BACKEND", "sqlite")
	if _, err := Load(); err == nil {
		t.Fatalf("expected unknown backend to fail")
	}

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("GUARD_THRESHOLD_PERCENT", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected negative threshold to fail")
	}
}
