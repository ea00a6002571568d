package config

import (
	"os"
	"regexp"

	"ploc/internal/core/errors"

	"github.com/gobwas/glob"
)

var packageName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validate(cfg *Config) error {
	if err := validateCache(cfg); err != nil {
		return err
	}
	if cfg.Jobs < 0 {
		return errors.Newf(errors.CodeValidationError, "jobs must be >= 0, got %d", cfg.Jobs)
	}
	if err := validateAdditionalPackages(cfg); err != nil {
		return err
	}
	if err := validatePatterns("exclude_dirs", cfg.ExcludeDirs); err != nil {
		return err
	}
	if err := validatePatterns("exclude_files", cfg.ExcludeFiles); err != nil {
		return err
	}
	if cfg.Watch.Debounce < 0 || cfg.Watch.MinInterval < 0 {
		return errors.New(errors.CodeValidationError, "watch durations must not be negative")
	}
	return nil
}

func validateCache(cfg *Config) error {
	switch cfg.Cache {
	case "on", "off", "rebuild":
		return nil
	default:
		return errors.Newf(errors.CodeValidationError, "cache must be one of: on, off, rebuild (got %q)", cfg.Cache)
	}
}

func validateAdditionalPackages(cfg *Config) error {
	for name, dir := range cfg.AdditionalPackages {
		if !packageName.MatchString(name) {
			err := errors.Newf(errors.CodeValidationError, "additional package name %q must be a top-level identifier", name)
			return errors.AddContext(err, errors.CtxModule, name)
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			err := errors.Newf(errors.CodeValidationError, "additional package %q: %s is not a directory", name, dir)
			return errors.AddContext(err, errors.CtxModule, name)
		}
	}
	return nil
}

func validatePatterns(key string, patterns []string) error {
	for _, p := range patterns {
		if _, err := glob.Compile(p); err != nil {
			return errors.Wrap(err, errors.CodeValidationError, key+": invalid pattern "+p)
		}
	}
	return nil
}
