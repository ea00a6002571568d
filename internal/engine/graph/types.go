package graph

import (
	"fmt"
	"sort"
	"strings"

	"ploc/internal/core/errors"
	"ploc/internal/shared/util"
)

// ModuleLocation identifies one source module of a scan.
type ModuleLocation struct {
	Path   ModulePath
	File   string
	IsInit bool // File is a package __init__.py; Path already omits "__init__"
}

// NameImport is one imported binding: `from Module import ExportName as ImportName`.
// An empty Module stands for a bare `import ExportName`.
type NameImport struct {
	Module     ModulePath `json:"module"`
	ExportName string     `json:"export_name"`
	ImportName string     `json:"import_name"`
}

// Alias returns the local name when it differs from the exported one.
func (i NameImport) Alias() string {
	if i.ImportName != i.ExportName {
		return i.ImportName
	}
	return ""
}

func (i NameImport) String() string {
	var b strings.Builder
	if !i.Module.IsEmpty() {
		b.WriteString("from ")
		b.WriteString(i.Module.String())
		b.WriteString(" ")
	}
	b.WriteString("import ")
	b.WriteString(i.ExportName)
	if alias := i.Alias(); alias != "" {
		b.WriteString(" as ")
		b.WriteString(alias)
	}
	return b.String()
}

// CompareNameImports orders imports by module, alias, then exported name.
func CompareNameImports(a, b NameImport) int {
	if c := a.Module.Compare(b.Module); c != 0 {
		return c
	}
	if c := strings.Compare(a.Alias(), b.Alias()); c != 0 {
		return c
	}
	if c := strings.Compare(a.ExportName, b.ExportName); c != 0 {
		return c
	}
	return strings.Compare(a.ImportName, b.ImportName)
}

// NameSet is a set of identifiers.
type NameSet map[string]struct{}

func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s NameSet) Add(name string) { s[name] = struct{}{} }

func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s NameSet) Sorted() []string {
	return util.SortedStringKeys(s)
}

func (s NameSet) Equal(other NameSet) bool {
	if len(s) != len(other) {
		return false
	}
	for n := range s {
		if !other.Has(n) {
			return false
		}
	}
	return true
}

func (s NameSet) Intersect(other NameSet) NameSet {
	out := make(NameSet)
	for n := range s {
		if other.Has(n) {
			out.Add(n)
		}
	}
	return out
}

// Extracted is what the source extractor knows about a single file, before
// the package structure of the scan is taken into account.
type Extracted struct {
	ImportedNames map[string]NameImport
	ExportedNames NameSet
}

// ModuleInterface is the externally visible contract of a module. It is never
// mutated once built.
type ModuleInterface struct {
	Location      ModuleLocation
	ImportedNames map[string]NameImport // local bound name -> import
	ExportedNames NameSet
	Submodules    NameSet // only populated for packages
}

// NewModuleInterface builds an interface and rejects packages whose
// submodules are shadowed by top-level definitions.
func NewModuleInterface(loc ModuleLocation, imported map[string]NameImport, exported, submodules NameSet) (*ModuleInterface, error) {
	if imported == nil {
		imported = make(map[string]NameImport)
	}
	if exported == nil {
		exported = make(NameSet)
	}
	if submodules == nil {
		submodules = make(NameSet)
	}
	if loc.IsInit {
		if shadowed := submodules.Intersect(exported); len(shadowed) > 0 {
			err := errors.Newf(errors.CodeShadowedExport,
				"shadowed export attributes in %s: %s", describeModule(loc), strings.Join(shadowed.Sorted(), ", "))
			return nil, errors.AddContext(err, errors.CtxPath, loc.File)
		}
	}
	return &ModuleInterface{
		Location:      loc,
		ImportedNames: imported,
		ExportedNames: exported,
		Submodules:    submodules,
	}, nil
}

// BuildInterface turns extractor output into an interface. For packages the
// submodules are derived from locations, and imports that merely bind one of
// the package's own submodules are dropped.
func BuildInterface(loc ModuleLocation, extracted Extracted, locations map[ModulePath]ModuleLocation) (*ModuleInterface, error) {
	imported := extracted.ImportedNames
	submodules := SubmodulesOf(loc, locations)
	if loc.IsInit {
		filtered := make(map[string]NameImport, len(imported))
		for name, imp := range imported {
			if submodules.Has(imp.ExportName) {
				continue
			}
			filtered[name] = imp
		}
		imported = filtered
	}
	return NewModuleInterface(loc, imported, extracted.ExportedNames, submodules)
}

// SubmodulesOf returns the short names of the locations directly below a
// package. Plain modules have none.
func SubmodulesOf(loc ModuleLocation, locations map[ModulePath]ModuleLocation) NameSet {
	out := make(NameSet)
	if !loc.IsInit {
		return out
	}
	for path := range locations {
		if loc.Path.IsSubpath(path) {
			out.Add(path.Last())
		}
	}
	return out
}

// SortedImports returns the interface's imports in a stable order.
func (m *ModuleInterface) SortedImports() []NameImport {
	out := make([]NameImport, 0, len(m.ImportedNames))
	for _, name := range util.SortedStringKeys(m.ImportedNames) {
		out = append(out, m.ImportedNames[name])
	}
	return out
}

// Interfaces maps every known module to its interface. The planner builds it
// once per run; consumers only read it.
type Interfaces map[ModulePath]*ModuleInterface

// TopLevelPackages returns the first segment of every non-empty module path.
func (is Interfaces) TopLevelPackages() NameSet {
	out := make(NameSet)
	for path := range is {
		if !path.IsEmpty() {
			out.Add(path.Top())
		}
	}
	return out
}

// SortedPaths returns the module paths in segment order.
func (is Interfaces) SortedPaths() []ModulePath {
	paths := make([]ModulePath, 0, len(is))
	for p := range is {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i].Compare(paths[j]) < 0 })
	return paths
}

func describeModule(loc ModuleLocation) string {
	name := loc.Path.String()
	if name == "" {
		name = "<root>"
	}
	return fmt.Sprintf("%s (%s)", name, loc.File)
}
