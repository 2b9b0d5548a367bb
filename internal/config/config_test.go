package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might affect defaults
	for _, key := range []string{"LOG_LEVEL", "GATEWAY_URL", "GATEWAY_RETRY_MAX", "GATEWAY_RETRY_BASE_DELAY", "DATABASE_URL", "GOOGLE_SHEETS_ID"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
	if cfg.GatewayURL != "https://gateway.multiversx.com" {
		t.Errorf("GatewayURL = %q, want default", cfg.GatewayURL)
	}
	if cfg.GatewayRetryMax != 5 {
		t.Errorf("GatewayRetryMax = %d, want 5", cfg.GatewayRetryMax)
	}
	if cfg.GatewayRetryBaseDelay != 2*time.Second {
		t.Errorf("GatewayRetryBaseDelay = %v, want 2s", cfg.GatewayRetryBaseDelay)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.SheetsID != "" {
		t.Errorf("SheetsID = %q, want empty", cfg.SheetsID)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GATEWAY_URL", "https://devnet-gateway.example.com")
	t.Setenv("DATABASE_URL", "postgres://localhost/testdb")
	t.Setenv("GATEWAY_RETRY_MAX", "10")
	t.Setenv("GATEWAY_RETRY_BASE_DELAY", "5s")

	cfg := Load()

	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.LogLevel)
	}
	if cfg.GatewayURL != "https://devnet-gateway.example.com" {
		t.Errorf("GatewayURL = %q, want override", cfg.GatewayURL)
	}
	if cfg.DatabaseURL != "postgres://localhost/testdb" {
		t.Errorf("DatabaseURL = %q, want override", cfg.DatabaseURL)
	}
	if cfg.GatewayRetryMax != 10 {
		t.Errorf("GatewayRetryMax = %d, want 10", cfg.GatewayRetryMax)
	}
	if cfg.GatewayRetryBaseDelay != 5*time.Second {
		t.Errorf("GatewayRetryBaseDelay = %v, want 5s", cfg.GatewayRetryBaseDelay)
	}
}

func TestLoadInvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("GATEWAY_RETRY_MAX", "not-a-number")
	t.Setenv("GATEWAY_RETRY_BASE_DELAY", "invalid-duration")
	t.Setenv("LOG_LEVEL", "loud")

	cfg := Load()

	if cfg.GatewayRetryMax != 5 {
		t.Errorf("GatewayRetryMax = %d, want default 5 on invalid input", cfg.GatewayRetryMax)
	}
	if cfg.GatewayRetryBaseDelay != 2*time.Second {
		t.Errorf("GatewayRetryBaseDelay = %v, want default 2s on invalid input", cfg.GatewayRetryBaseDelay)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want default INFO on invalid input", cfg.LogLevel)
	}
}
