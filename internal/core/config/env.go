package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: PLOC_[SECTION]_[KEY] (e.g., PLOC_WATCH_DEBOUNCE).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Cache, "PLOC_CACHE")
	setEnvInt(&cfg.Jobs, "PLOC_JOBS")

	setEnvDuration(&cfg.Watch.Debounce, "PLOC_WATCH_DEBOUNCE")
	setEnvDuration(&cfg.Watch.MinInterval, "PLOC_WATCH_MIN_INTERVAL")

	setEnvString(&cfg.Telemetry.OTLPEndpoint, "PLOC_TELEMETRY_OTLP_ENDPOINT")
	setEnvString(&cfg.Telemetry.MetricsTextfile, "PLOC_TELEMETRY_METRICS_TEXTFILE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
