package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ploc/internal/core/errors"

	"github.com/BurntSushi/toml"
)

// Load reads the [tool.ploc] table of the pyproject file at path. Relative
// paths inside it are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "configuration file not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read configuration"), errors.CtxPath, path)
	}

	var doc pyproject
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid TOML"), errors.CtxPath, path)
	}
	if unknown := unknownKeys(md); len(unknown) > 0 {
		err := errors.Newf(errors.CodeValidationError, "unknown configuration keys: %s", strings.Join(unknown, ", "))
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}

	cfg := doc.Tool.Ploc
	cfg.Source = path
	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)
	resolvePaths(&cfg, filepath.Dir(path))

	if err := validate(&cfg); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return &cfg, nil
}

// LoadForRoot loads explicit when given, otherwise the pyproject.toml of
// root. A root without pyproject.toml gets the defaults.
func LoadForRoot(root, explicit string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path := filepath.Join(root, PyprojectFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		ApplyEnvOverrides(cfg)
		if err := validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

// unknownKeys lists undecoded keys under [tool.ploc]; other tools' tables
// are none of our business.
func unknownKeys(md toml.MetaData) []string {
	var out []string
	for _, key := range md.Undecoded() {
		if len(key) > 2 && key[0] == "tool" && key[1] == "ploc" {
			out = append(out, strings.Join(key[2:], "."))
		}
	}
	sort.Strings(out)
	return out
}

func resolvePaths(cfg *Config, base string) {
	for name, dir := range cfg.AdditionalPackages {
		cfg.AdditionalPackages[name] = ResolveRelative(base, dir)
	}
	if cfg.Telemetry.MetricsTextfile != "" {
		cfg.Telemetry.MetricsTextfile = ResolveRelative(base, cfg.Telemetry.MetricsTextfile)
	}
}
