// # internal/engine/resolver/resolver.go
package resolver

import (
	"strings"

	"ploc/internal/core/errors"
	"ploc/internal/engine/graph"
)

// Resolver finds the canonical origin of imported names over a fixed set of
// module interfaces.
type Resolver struct {
	interfaces graph.Interfaces
}

func New(interfaces graph.Interfaces) *Resolver {
	return &Resolver{interfaces: interfaces}
}

type hop struct {
	module graph.ModulePath
	name   string
}

// Resolve follows the re-export chain of imp as far as known modules allow.
// It returns the import to use instead and true when imp is indirect, or the
// zero value and false when imp already points at the name's origin or at the
// public surface of a package.
//
// The replacement always keeps imp.ImportName.
func (r *Resolver) Resolve(imp graph.NameImport) (graph.NameImport, bool, error) {
	src, ok := r.interfaces[imp.Module]
	if !ok {
		err := errors.Newf(errors.CodeUnknownModule, "referenced first-party module not found: %s", imp.Module)
		return graph.NameImport{}, false, errors.AddContext(err, errors.CtxModule, imp.Module.String())
	}

	origin := imp
	chain := []graph.NameImport{imp}
	visited := map[hop]bool{{imp.Module, imp.ExportName}: true}

	current, name := src, imp.ExportName
	for {
		next, reexported := current.ImportedNames[name]
		if !reexported {
			break
		}
		// A package __init__ forwarding a name from one of its own submodules
		// is the intended public entry point.
		if current.Location.IsInit && imp.Module.IsSubpath(next.Module) {
			return graph.NameImport{}, false, nil
		}

		origin = next
		chain = append(chain, next)
		key := hop{next.Module, next.ExportName}
		if visited[key] {
			return graph.NameImport{}, false, cyclicError(chain)
		}
		visited[key] = true

		nextModule, known := r.interfaces[next.Module]
		if !known {
			break
		}
		current, name = nextModule, next.ExportName
	}

	if origin != imp {
		return graph.NameImport{
			Module:     origin.Module,
			ExportName: origin.ExportName,
			ImportName: imp.ImportName,
		}, true, nil
	}

	if !src.ExportedNames.Has(imp.ExportName) && !src.Submodules.Has(imp.ExportName) {
		err := errors.Newf(errors.CodeUnresolvedImport, "imported member %q not found in %s", imp.ExportName, imp.Module)
		err = errors.AddContext(err, errors.CtxModule, imp.Module.String())
		return graph.NameImport{}, false, errors.AddContext(err, errors.CtxSymbol, imp.ExportName)
	}
	return graph.NameImport{}, false, nil
}

func cyclicError(chain []graph.NameImport) error {
	steps := make([]string, len(chain))
	for i, c := range chain {
		steps[i] = c.Module.String() + "." + c.ExportName
	}
	err := errors.Newf(errors.CodeCyclicReExport, "cyclic re-export: %s", strings.Join(steps, " -> "))
	return errors.AddContext(err, errors.CtxSymbol, chain[0].ExportName)
}
