package graph

import (
	"testing"

	"ploc/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameImport_String(t *testing.T) {
	cases := map[string]NameImport{
		"import os":                  {ExportName: "os", ImportName: "os"},
		"import numpy as np":         {ExportName: "numpy", ImportName: "np"},
		"from pkg.b import X":        {Module: "pkg.b", ExportName: "X", ImportName: "X"},
		"from pkg.b import X as Foo": {Module: "pkg.b", ExportName: "X", ImportName: "Foo"},
	}
	for want, imp := range cases {
		assert.Equal(t, want, imp.String())
	}
	assert.Empty(t, NameImport{Module: "m", ExportName: "X", ImportName: "X"}.Alias())
}

func TestCompareNameImports(t *testing.T) {
	a := NameImport{Module: "pkg.a", ExportName: "Z", ImportName: "Z"}
	b := NameImport{Module: "pkg.b", ExportName: "A", ImportName: "A"}
	aliased := NameImport{Module: "pkg.b", ExportName: "A", ImportName: "B"}

	assert.Negative(t, CompareNameImports(a, b))
	assert.Negative(t, CompareNameImports(b, aliased), "plain imports sort before aliased ones")
	assert.Zero(t, CompareNameImports(b, b))
}

func TestNewModuleInterface_Shadowing(t *testing.T) {
	pkg := ModuleLocation{Path: "pkg", File: "/src/pkg/__init__.py", IsInit: true}

	_, err := NewModuleInterface(pkg, nil, NewNameSet("util", "helper", "X"), NewNameSet("util", "helper", "other"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeShadowedExport))
	assert.Contains(t, err.Error(), "helper, util")

	// plain modules have no submodules to shadow
	mod := ModuleLocation{Path: "pkg.mod", File: "/src/pkg/mod.py"}
	iface, err := NewModuleInterface(mod, nil, NewNameSet("util"), nil)
	require.NoError(t, err)
	assert.NotNil(t, iface.ImportedNames)
	assert.NotNil(t, iface.Submodules)
}

func TestBuildInterface(t *testing.T) {
	locations := map[ModulePath]ModuleLocation{
		"pkg":          {Path: "pkg", File: "/src/pkg/__init__.py", IsInit: true},
		"pkg.a":        {Path: "pkg.a", File: "/src/pkg/a.py"},
		"pkg.sub":      {Path: "pkg.sub", File: "/src/pkg/sub/__init__.py", IsInit: true},
		"pkg.sub.deep": {Path: "pkg.sub.deep", File: "/src/pkg/sub/deep.py"},
	}
	extracted := Extracted{
		ImportedNames: map[string]NameImport{
			"X":   {Module: "pkg.a", ExportName: "X", ImportName: "X"},
			"a":   {Module: "pkg", ExportName: "a", ImportName: "a"},
			"sub": {Module: "pkg", ExportName: "sub", ImportName: "sub"},
		},
		ExportedNames: NewNameSet("VERSION"),
	}

	iface, err := BuildInterface(locations["pkg"], extracted, locations)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "sub"}, iface.Submodules.Sorted())
	assert.Equal(t, map[string]NameImport{"X": extracted.ImportedNames["X"]}, iface.ImportedNames)

	iface, err = BuildInterface(locations["pkg.a"], extracted, locations)
	require.NoError(t, err)
	assert.Empty(t, iface.Submodules)
	assert.Len(t, iface.ImportedNames, 3, "only packages drop their own submodules")
}

func TestInterfaces_TopLevelPackages(t *testing.T) {
	is := Interfaces{
		"":        {},
		"pkg":     {},
		"pkg.sub": {},
		"other.m": {},
		"setup":   {},
	}
	assert.Equal(t, []string{"other", "pkg", "setup"}, is.TopLevelPackages().Sorted())
	assert.Equal(t, []ModulePath{"", "other.m", "pkg", "pkg.sub", "setup"}, is.SortedPaths())
}
