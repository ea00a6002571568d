package parser

import (
	"testing"

	"ploc/internal/core/errors"
	"ploc/internal/engine/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteImports(t *testing.T) {
	p := NewParser()
	loc := graph.ModuleLocation{Path: "pkg.d", File: "pkg/d.py"}
	code := `"""Module docstring."""
from __future__ import annotations

import os
from pkg.c import X, Other
from pkg.c import Y as Why
from .c import Z


def f():
    from pkg.c import X
    return X
`
	replacements := map[graph.NameImport]graph.NameImport{
		imp("pkg.c", "X", "X"):   imp("pkg.b", "X", "X"),
		imp("pkg.c", "Y", "Why"): imp("pkg.b", "Y", "Why"),
		imp("pkg.c", "Z", "Z"):   imp("pkg.deep.z", "Z", "Z"),
	}

	out, err := p.RewriteImports(loc, []byte(code), replacements)
	require.NoError(t, err)

	want := `"""Module docstring."""
from __future__ import annotations

import os
from pkg.c import Other
from pkg.b import X
from pkg.b import Y as Why
from pkg.deep.z import Z


def f():
    from pkg.c import X
    return X
`
	assert.Equal(t, want, string(out))

	again, err := p.Extract(loc, out)
	require.NoError(t, err)
	for old, repl := range replacements {
		assert.Equal(t, repl, again.ImportedNames[old.ImportName])
	}
}

func TestRewriteImports_GroupsByModuleAndKeepsIndentation(t *testing.T) {
	p := NewParser()
	loc := graph.ModuleLocation{Path: "app", File: "app/__init__.py", IsInit: true}
	code := "try:\n    from lib.api import A, B as Bee, C, D\nexcept ImportError:\n    pass\n"
	replacements := map[graph.NameImport]graph.NameImport{
		imp("lib.api", "A", "A"):   imp("lib.core", "A", "A"),
		imp("lib.api", "B", "Bee"): imp("lib.core", "B", "Bee"),
		imp("lib.api", "D", "D"):   imp("lib.other", "Dee", "D"),
	}

	out, err := p.RewriteImports(loc, []byte(code), replacements)
	require.NoError(t, err)

	want := "try:\n" +
		"    from lib.api import C\n" +
		"    from lib.core import A, B as Bee\n" +
		"    from lib.other import Dee as D\n" +
		"except ImportError:\n    pass\n"
	assert.Equal(t, want, string(out))
}

func TestRewriteImports_SameLineStatement(t *testing.T) {
	p := NewParser()
	loc := graph.ModuleLocation{Path: "m", File: "m.py"}
	code := "x = 1; from a import X, Y\n"
	out, err := p.RewriteImports(loc, []byte(code), map[graph.NameImport]graph.NameImport{
		imp("a", "X", "X"): imp("b", "X", "X"),
	})
	require.NoError(t, err)
	assert.Equal(t, "x = 1; from a import Y; from b import X\n", string(out))
}

func TestRewriteImports_NoReplacements(t *testing.T) {
	p := NewParser()
	code := []byte("from a import X\n")
	out, err := p.RewriteImports(graph.ModuleLocation{Path: "m", File: "m.py"}, code, nil)
	require.NoError(t, err)
	assert.Equal(t, code, out)
}

func TestRewriteImports_ChangedBindingRejected(t *testing.T) {
	p := NewParser()
	_, err := p.RewriteImports(graph.ModuleLocation{Path: "m", File: "m.py"}, []byte("from a import X\n"),
		map[graph.NameImport]graph.NameImport{
			imp("a", "X", "X"): imp("b", "X", "Renamed"),
		})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestRewriteImports_MissingImportFails(t *testing.T) {
	p := NewParser()
	_, err := p.RewriteImports(graph.ModuleLocation{Path: "m", File: "m.py"}, []byte("from a import X\n"),
		map[graph.NameImport]graph.NameImport{
			imp("a", "Y", "Y"): imp("b", "Y", "Y"),
		})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInternal))
	assert.Contains(t, err.Error(), "from a import Y")
}

func TestFormatGroupedImports(t *testing.T) {
	lines := FormatGroupedImports(map[graph.NameImport]bool{
		imp("b", "Z", "Z"):    true,
		imp("a", "Y", "Y"):    true,
		imp("a", "X", "Ex"):   true,
		imp("", "json", "js"): true,
	})
	assert.Equal(t, []string{
		"import json as js",
		"from a import X as Ex, Y",
		"from b import Z",
	}, lines)
}

func TestRewriteImports_KeepsLayoutOfRemainingBindings(t *testing.T) {
	p := NewParser()
	loc := graph.ModuleLocation{Path: "pkg.d", File: "pkg/d.py"}

	cases := []struct {
		name string
		code string
		old  graph.NameImport
		want string
	}{
		{
			name: "binding on its own line",
			code: "from pkg.c import (\n    X,  # the X\n    Other,  # keep me\n)\n",
			old:  imp("pkg.c", "X", "X"),
			want: "from pkg.c import (\n    Other,  # keep me\n)\nfrom pkg.b import X\n",
		},
		{
			name: "last binding after a commented one",
			code: "from pkg.c import (Other,  # keep me\n    X)\n",
			old:  imp("pkg.c", "X", "X"),
			want: "from pkg.c import (Other  # keep me\n    )\nfrom pkg.b import X\n",
		},
		{
			name: "comment after the statement",
			code: "from pkg.c import X, Other  # note\nprint(X)\n",
			old:  imp("pkg.c", "X", "X"),
			want: "from pkg.c import Other  # note\nfrom pkg.b import X\nprint(X)\n",
		},
		{
			name: "backslash continuation",
			code: "from pkg.c import Other, \\\n    X\n",
			old:  imp("pkg.c", "X", "X"),
			want: "from pkg.c import Other\nfrom pkg.b import X\n",
		},
		{
			name: "dotted import stays",
			code: "import json as js, os.path\n",
			old:  imp("", "json", "js"),
			want: "import os.path\nimport simplejson as js\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repl := imp("pkg.b", tc.old.ExportName, tc.old.ImportName)
			if tc.old.Module.IsEmpty() {
				repl = imp("", "simplejson", tc.old.ImportName)
			}
			out, err := p.RewriteImports(loc, []byte(tc.code), map[graph.NameImport]graph.NameImport{tc.old: repl})
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(out))

			again, err := p.Extract(loc, out)
			require.NoError(t, err)
			assert.Equal(t, repl, again.ImportedNames[tc.old.ImportName])
		})
	}
}
