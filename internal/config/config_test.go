package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("CACHE_TTL", "")
	t.Setenv("BLOB_BACKEND", "")

	cfg := Load()
	if cfg.HTTPPort != "8080" {
		t.Fatalf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Fatalf("CacheTTL = %s", cfg.CacheTTL)
	}
	if cfg.BlobBackend != "local" {
		t.Fatalf("BlobBackend = %q", cfg.BlobBackend)
	}
}

func TestLoadOverridesAndFallbacks(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("CACHE_TTL", "0s")
	t.Setenv("RATE_LIMIT_PER_MIN", "not-a-number")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")

	cfg := Load()
	if !cfg.Production() {
		t.Fatal("expected production")
	}
	if cfg.CacheTTL != 0 {
		t.Fatalf("CacheTTL = %s", cfg.CacheTTL)
	}
	if cfg.RateLimitPerMin != 120 {
		t.Fatalf("RateLimitPerMin = %d, want fallback", cfg.RateLimitPerMin)
	}
	if cfg.AutoMigrate {
		t.Fatal("AutoMigrate should be false")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}
