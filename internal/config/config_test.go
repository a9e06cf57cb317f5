package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("LEDGER_CACHE_TTL_SECONDS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("default port: got %q", cfg.Port)
	}
	if cfg.AccessTokenTTL != 480*time.Minute {
		t.Fatalf("default token ttl: got %v", cfg.AccessTokenTTL)
	}
	if cfg.LedgerCacheTTL != 30*time.Second {
		t.Fatalf("default cache ttl: got %v", cfg.LedgerCacheTTL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "60")
	t.Setenv("LEDGER_CACHE_TTL_SECONDS", "bogus")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("port: got %q", cfg.Port)
	}
	if cfg.RedisDB != 3 {
		t.Fatalf("redis db: got %d", cfg.RedisDB)
	}
	if cfg.AccessTokenTTL != time.Hour {
		t.Fatalf("token ttl: got %v", cfg.AccessTokenTTL)
	}
	if cfg.LedgerCacheTTL != 30*time.Second {
		t.Fatalf("invalid int must fall back to default, got %v", cfg.LedgerCacheTTL)
	}
}
