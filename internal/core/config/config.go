package config

import (
	"runtime"
	"time"
)

const (
	PyprojectFile = "pyproject.toml"
	Section       = "tool.ploc"
)

// Config is the [tool.ploc] table of a pyproject.toml file. Paths are
// absolute once loaded.
type Config struct {
	AdditionalPackages map[string]string `toml:"additional_packages"`
	Cache              string            `toml:"cache"`
	Jobs               int               `toml:"jobs"`
	ExcludeDirs        []string          `toml:"exclude_dirs"`
	ExcludeFiles       []string          `toml:"exclude_files"`
	Watch              Watch             `toml:"watch"`
	Telemetry          Telemetry         `toml:"telemetry"`

	// Source is the file the configuration was read from, empty for defaults.
	Source string `toml:"-"`
}

type Watch struct {
	Debounce    time.Duration `toml:"debounce"`
	MinInterval time.Duration `toml:"min_interval"`
}

type Telemetry struct {
	OTLPEndpoint    string `toml:"otlp_endpoint"`
	MetricsTextfile string `toml:"metrics_textfile"`
}

type pyproject struct {
	Tool struct {
		Ploc Config `toml:"ploc"`
	} `toml:"tool"`
}

func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.AdditionalPackages == nil {
		cfg.AdditionalPackages = map[string]string{}
	}
	if cfg.Cache == "" {
		cfg.Cache = "on"
	}
	if cfg.Jobs == 0 {
		cfg.Jobs = runtime.NumCPU()
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.MinInterval == 0 {
		cfg.Watch.MinInterval = 2 * time.Second
	}
}
