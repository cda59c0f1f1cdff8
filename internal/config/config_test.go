package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/intake")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StoreBackend != BackendPostgres {
		t.Fatalf("expected postgres default, got %q", cfg.StoreBackend)
	}
	if cfg.StoreTable != "appointments" {
		t.Fatalf("unexpected table: %q", cfg.StoreTable)
	}
	if cfg.Port != "8084" {
		t.Fatalf("unexpected port: %q", cfg.Port)
	}
	if !cfg.ExposeErrorDetail {
		t.Fatal("expected error detail on by default")
	}
}

func TestLoad_RequiresBackendSettings(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for postgres without DATABASE_URL")
	}

	t.Setenv("STORE_BACKEND", "redis")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for redis without REDIS_ADDR")
	}

	t.Setenv("STORE_BACKEND", "memory")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StoreBackend != BackendMemory {
		t.Fatalf("unexpected backend: %q", cfg.StoreBackend)
	}

	t.Setenv("STORE_BACKEND", "dynamo")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoad_RateLimitNeedsRedis(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "120")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for rate limit without REDIS_ADDR")
	}

	t.Setenv("REDIS_ADDR", "localhost:6379")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Fatalf("unexpected rate limit: %d", cfg.RateLimitPerMinute)
	}
}
