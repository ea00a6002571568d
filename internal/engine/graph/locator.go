package graph

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"

	"ploc/internal/core/errors"

	"github.com/gobwas/glob"
)

const (
	sourceExt   = ".py"
	packageInit = "__init__"
)

// DefaultExcludeDirs are never descended into while locating modules.
var DefaultExcludeDirs = []string{
	".git", ".hg", ".svn", "__pycache__", ".venv", "venv", ".tox", ".nox",
	".mypy_cache", ".pytest_cache", ".ruff_cache", "node_modules", ".ploc_cache",
}

// LocateOptions filters the files considered by Locate. Patterns match base names.
type LocateOptions struct {
	ExcludeDirs  []string
	ExcludeFiles []string
}

// Locate maps every Python file under root to its module location, prefixing
// module paths with rootPath.
func Locate(root string, rootPath ModulePath, opts LocateOptions) (map[ModulePath]ModuleLocation, error) {
	dirGlobs, err := compileGlobs(append(append([]string{}, DefaultExcludeDirs...), opts.ExcludeDirs...))
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(opts.ExcludeFiles)
	if err != nil {
		return nil, err
	}

	locations := make(map[ModulePath]ModuleLocation)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		base := d.Name()
		if d.IsDir() {
			if path != root && (matchAny(dirGlobs, base) || !IsIdentifier(base)) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(base) != sourceExt || matchAny(fileGlobs, base) {
			return nil
		}
		// `b.c.py` or `my-script.py` cannot be imported and would clash with
		// the dotted path of an importable module
		if !IsIdentifier(strings.TrimSuffix(base, sourceExt)) {
			slog.Debug("skipping non-importable file", "path", path)
			return nil
		}

		loc, err := locationFor(root, path, rootPath)
		if err != nil {
			return err
		}
		if prev, ok := locations[loc.Path]; ok {
			err := errors.Newf(errors.CodeDuplicateModulePath,
				"two files map to the same module path %q:\n  %s\n  %s", loc.Path, path, prev.File)
			return errors.AddContext(err, errors.CtxModule, loc.Path.String())
		}
		locations[loc.Path] = loc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return locations, nil
}

func locationFor(root, file string, rootPath ModulePath) (ModuleLocation, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return ModuleLocation{}, errors.Wrap(err, errors.CodeInternal, "relative module path")
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), sourceExt)
	segments := strings.Split(rel, "/")

	isInit := segments[len(segments)-1] == packageInit
	if isInit {
		segments = segments[:len(segments)-1]
	}
	return ModuleLocation{
		Path:   rootPath.Join(NewModulePath(segments...)),
		File:   file,
		IsInit: isInit,
	}, nil
}

// IsIdentifier reports whether name is a valid Python identifier.
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid exclude pattern %q", p))
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
