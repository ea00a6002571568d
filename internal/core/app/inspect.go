package app

import (
	"path/filepath"
	"strings"

	"ploc/internal/core/errors"
	"ploc/internal/core/ports"
	"ploc/internal/engine/graph"
)

// InspectFile extracts the interface of a single file without any cache.
// The file's directory is taken as the root, so a package __init__.py gets
// its sibling modules as submodules.
func InspectFile(extractor ports.InterfaceExtractor, file string) (*graph.ModuleInterface, error) {
	file, err := filepath.Abs(file)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "resolve file"), errors.CtxPath, file)
	}
	if filepath.Ext(file) != ".py" {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "not a Python module"), errors.CtxPath, file)
	}

	stem := strings.TrimSuffix(filepath.Base(file), ".py")
	if !graph.IsIdentifier(stem) {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "not an importable module name"), errors.CtxPath, file)
	}

	locations, err := graph.Locate(filepath.Dir(file), "", graph.LocateOptions{})
	if err != nil {
		return nil, err
	}

	path := graph.ModulePath("")
	if stem != "__init__" {
		path = graph.ModulePath(stem)
	}
	loc, ok := locations[path]
	if !ok {
		return nil, errors.AddContext(errors.New(errors.CodeNotFound, "module not found"), errors.CtxPath, file)
	}

	extracted, err := extractor.ExtractFile(loc)
	if err != nil {
		return nil, err
	}
	return graph.BuildInterface(loc, extracted, locations)
}
