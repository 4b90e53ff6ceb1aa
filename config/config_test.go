package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ThreadID != "default" {
		t.Errorf("thread id = %q, want default", cfg.ThreadID)
	}
	if cfg.MarketChangeThreshold != 0.05 {
		t.Errorf("market change threshold = %v, want 0.05", cfg.MarketChangeThreshold)
	}
	if cfg.RateLimitMinInterval != 1100*time.Millisecond {
		t.Errorf("rate limit min interval = %v, want 1100ms", cfg.RateLimitMinInterval)
	}
	if cfg.CausalCacheTTL != 3600*time.Second {
		t.Errorf("causal cache ttl = %v, want 1h", cfg.CausalCacheTTL)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	os.Setenv("SENTINEL_THREAD_ID", "thread-xyz")
	os.Setenv("SENTINEL_STORE_DRIVER", "sqlite")
	defer os.Unsetenv("SENTINEL_THREAD_ID")
	defer os.Unsetenv("SENTINEL_STORE_DRIVER")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ThreadID != "thread-xyz" {
		t.Errorf("thread id = %q, want thread-xyz", cfg.ThreadID)
	}
	if cfg.StoreDriver != "sqlite" {
		t.Errorf("store driver = %q, want sqlite", cfg.StoreDriver)
	}
}

func TestLoad_RejectsUnknownStoreDriver(t *testing.T) {
	os.Setenv("SENTINEL_STORE_DRIVER", "postgres")
	defer os.Unsetenv("SENTINEL_STORE_DRIVER")

	if _, err := Load(); err == nil {
		t.Errorf("expected error for unknown store driver")
	}
}
