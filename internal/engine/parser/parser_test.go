package parser

import (
	"os"
	"path/filepath"
	"testing"

	"ploc/internal/core/errors"
	"ploc/internal/engine/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imp(module, export, name string) graph.NameImport {
	return graph.NameImport{Module: graph.ModulePath(module), ExportName: export, ImportName: name}
}

func TestPythonExtraction(t *testing.T) {
	p := NewParser()
	code := `
from __future__ import annotations

import os
import sys as system
import xml.etree.ElementTree
from auth.utils import login as auth_login, logout
from auth.models import (
    User,
    Group as Team,
)
from helpers import *

if TYPE_CHECKING:
    from auth.types import Token

VERSION = "1.0"
a = b = 2
first, second = 1, 2
limit: int = 10
pending: list[str]
type UserId = int


@decorator
class Service:
    name = "inner"

    def run(self):
        import json
        local = 1


def helper(x):
    from auth.internal import secret
    return secret(x)


async def fetch():
    pass
`
	loc := graph.ModuleLocation{Path: "app.main", File: "app/main.py"}
	extracted, err := p.Extract(loc, []byte(code))
	require.NoError(t, err)

	assert.Equal(t, map[string]graph.NameImport{
		"annotations": imp("__future__", "annotations", "annotations"),
		"os":          imp("", "os", "os"),
		"system":      imp("", "sys", "system"),
		"auth_login":  imp("auth.utils", "login", "auth_login"),
		"logout":      imp("auth.utils", "logout", "logout"),
		"User":        imp("auth.models", "User", "User"),
		"Team":        imp("auth.models", "Group", "Team"),
		"Token":       imp("auth.types", "Token", "Token"),
	}, extracted.ImportedNames)

	assert.Equal(t,
		[]string{"Service", "UserId", "VERSION", "a", "b", "fetch", "helper", "limit", "pending"},
		extracted.ExportedNames.Sorted())
}

func TestPythonExtraction_LastBindingWins(t *testing.T) {
	p := NewParser()
	code := "from a import X\nfrom b import Y as X\n"
	extracted, err := p.Extract(graph.ModuleLocation{Path: "m", File: "m.py"}, []byte(code))
	require.NoError(t, err)

	assert.Len(t, extracted.ImportedNames, 1)
	assert.Equal(t, imp("b", "Y", "X"), extracted.ImportedNames["X"])
}

func TestPythonExtraction_RelativeImports(t *testing.T) {
	p := NewParser()
	code := `
from . import sibling
from .c import X
from ..up import Y
from ...toofar import Z
`
	cases := []struct {
		name string
		loc  graph.ModuleLocation
		want map[string]graph.NameImport
	}{
		{
			name: "module",
			loc:  graph.ModuleLocation{Path: "pkg.sub.mod", File: "pkg/sub/mod.py"},
			want: map[string]graph.NameImport{
				"sibling": imp("pkg.sub", "sibling", "sibling"),
				"X":       imp("pkg.sub.c", "X", "X"),
				"Y":       imp("pkg.up", "Y", "Y"),
				"Z":       imp("toofar", "Z", "Z"),
			},
		},
		{
			name: "package",
			loc:  graph.ModuleLocation{Path: "pkg.sub", File: "pkg/sub/__init__.py", IsInit: true},
			want: map[string]graph.NameImport{
				"sibling": imp("pkg.sub", "sibling", "sibling"),
				"X":       imp("pkg.sub.c", "X", "X"),
				"Y":       imp("pkg.up", "Y", "Y"),
				"Z":       imp("toofar", "Z", "Z"),
			},
		},
		{
			name: "top level module",
			loc:  graph.ModuleLocation{Path: "mod", File: "mod.py"},
			want: map[string]graph.NameImport{
				"X": imp("c", "X", "X"),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			extracted, err := p.Extract(tc.loc, []byte(code))
			require.NoError(t, err)
			assert.Equal(t, tc.want, extracted.ImportedNames)
		})
	}
}

func TestPythonExtraction_SyntaxError(t *testing.T) {
	p := NewParser()
	_, err := p.Extract(graph.ModuleLocation{Path: "bad", File: "bad.py"}, []byte("def broken(:\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParse))
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.py")
	require.NoError(t, os.WriteFile(path, []byte("from a import b\nX = 1\n"), 0o644))

	p := NewParser()
	extracted, err := p.ExtractFile(graph.ModuleLocation{Path: "mod", File: path})
	require.NoError(t, err)
	assert.Contains(t, extracted.ImportedNames, "b")
	assert.True(t, extracted.ExportedNames.Has("X"))

	_, err = p.ExtractFile(graph.ModuleLocation{Path: "gone", File: filepath.Join(dir, "gone.py")})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}
