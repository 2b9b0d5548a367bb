package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the runtime settings loaded from environment variables.
// The snapshot itself is described by SnapshotConfig.
type Config struct {
	LogLevel              slog.Level
	GatewayURL            string
	GatewayRetryMax       int
	GatewayRetryBaseDelay time.Duration
	DatabaseURL           string
	SheetsID              string
	GoogleCredentialsJSON string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		LogLevel:              envOrDefaultLevel("LOG_LEVEL", slog.LevelInfo),
		GatewayURL:            envOrDefault("GATEWAY_URL", "https://gateway.multiversx.com"),
		GatewayRetryMax:       envOrDefaultInt("GATEWAY_RETRY_MAX", 5),
		GatewayRetryBaseDelay: envOrDefaultDuration("GATEWAY_RETRY_BASE_DELAY", 2*time.Second),
		DatabaseURL:           envOrDefault("DATABASE_URL", ""),
		SheetsID:              envOrDefault("GOOGLE_SHEETS_ID", ""),
		GoogleCredentialsJSON: envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	level, ok := ParseLevel(v)
	if !ok {
		slog.Warn("invalid log level env var, using default", "key", key, "value", v, "default", defaultVal)
		return defaultVal
	}
	return level
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, bool) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, false
	}
	return level, true
}
