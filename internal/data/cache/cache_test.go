package cache

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ploc/internal/core/errors"
	"ploc/internal/core/ports"
	"ploc/internal/engine/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModule(t *testing.T, root, rel string) graph.ModuleLocation {
	t.Helper()
	file := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte("X = 1\n"), 0o644))
	return graph.ModuleLocation{Path: "pkg", File: file, IsInit: true}
}

func modTime(t *testing.T, loc graph.ModuleLocation) time.Time {
	t.Helper()
	info, err := os.Stat(loc.File)
	require.NoError(t, err)
	return info.ModTime()
}

func sampleInterface(t *testing.T, loc graph.ModuleLocation) *graph.ModuleInterface {
	t.Helper()
	iface, err := graph.NewModuleInterface(loc,
		map[string]graph.NameImport{
			"Y": {Module: "pkg.sub", ExportName: "Y", ImportName: "Y"},
			"Z": {Module: "other", ExportName: "Orig", ImportName: "Z"},
		},
		graph.NewNameSet("X"),
		graph.NewNameSet("sub"),
	)
	require.NoError(t, err)
	return iface
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeOn, "on": ModeOn, "off": ModeOff, "rebuild": ModeRebuild} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseMode("sometimes")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestOpen_Disabled(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	loc := writeModule(t, root, "pkg/__init__.py")

	c, err := Open(ctx, root, ModeOff)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, sampleInterface(t, loc), modTime(t, loc)))
	got, err := c.Get(ctx, loc)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = os.Stat(filepath.Join(root, DirName))
	assert.True(t, os.IsNotExist(err), "disabled cache must not touch the filesystem")
}

func TestOpen_CreatesIgnoredDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, With(context.Background(), root, ModeOn, func(ports.InterfaceCache) error { return nil }))

	content, err := os.ReadFile(filepath.Join(root, DirName, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "*\n", string(content))
	assert.FileExists(t, Path(root))
}

func TestStoreCache_PersistsAcrossRuns(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	loc := writeModule(t, root, "pkg/__init__.py")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(loc.File, past, past))

	want := sampleInterface(t, loc)
	require.NoError(t, With(ctx, root, ModeOn, func(c ports.InterfaceCache) error {
		return c.Set(ctx, want, modTime(t, loc))
	}))

	require.NoError(t, With(ctx, root, ModeOn, func(c ports.InterfaceCache) error {
		got, err := c.Get(ctx, loc)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		return nil
	}))
}

func TestStoreCache_ModificationTimeValidity(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	loc := writeModule(t, root, "pkg/__init__.py")
	written := time.Unix(1_700_000_000, 0)

	c, err := Open(ctx, root, ModeOn)
	require.NoError(t, err)
	defer c.Close()

	want := sampleInterface(t, loc)
	require.NoError(t, c.Set(ctx, want, written))

	cases := []struct {
		name  string
		mtime time.Time
		hit   bool
	}{
		{"older than extracted", written.Add(-time.Second), true},
		{"as extracted", written, true},
		{"modified since extraction", written.Add(time.Millisecond), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, os.Chtimes(loc.File, tc.mtime, tc.mtime))
			got, err := c.Get(ctx, loc)
			require.NoError(t, err)
			if tc.hit {
				assert.Equal(t, want, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestStoreCache_MissingFileIsMiss(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	loc := writeModule(t, root, "pkg/__init__.py")

	require.NoError(t, With(ctx, root, ModeOn, func(c ports.InterfaceCache) error {
		require.NoError(t, c.Set(ctx, sampleInterface(t, loc), modTime(t, loc)))
		require.NoError(t, os.Remove(loc.File))
		got, err := c.Get(ctx, loc)
		require.NoError(t, err)
		assert.Nil(t, got)
		return nil
	}))
}

func TestStoreCache_CorruptedEntriesArePurged(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	loc := writeModule(t, root, "pkg/__init__.py")

	payloads := map[string]string{
		"not json":        "{not json",
		"missing fields":  `{"imported_names": {}, "exported_names": null, "submodules": [], "timestamp": 1}`,
		"bad timestamp":   `{"imported_names": {}, "exported_names": [], "submodules": [], "timestamp": 0}`,
		"bad import key":  `{"imported_names": {"A": {"module": "m", "export_name": "B", "import_name": "C"}}, "exported_names": [], "submodules": [], "timestamp": 1}`,
		"shadowed export": `{"imported_names": {}, "exported_names": ["sub"], "submodules": ["sub"], "timestamp": 1}`,
	}

	c, err := Open(ctx, root, ModeOn)
	require.NoError(t, err)
	defer c.Close()
	store := c.(*storeCache).store

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, loc.Path.String(), []byte(payload)))

			got, err := c.Get(ctx, loc)
			require.NoError(t, err)
			assert.Nil(t, got)

			n, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestOpen_RebuildPurgesEntries(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	loc := writeModule(t, root, "pkg/__init__.py")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(loc.File, past, past))

	require.NoError(t, With(ctx, root, ModeOn, func(c ports.InterfaceCache) error {
		return c.Set(ctx, sampleInterface(t, loc), modTime(t, loc))
	}))

	require.NoError(t, With(ctx, root, ModeRebuild, func(c ports.InterfaceCache) error {
		got, err := c.Get(ctx, loc)
		require.NoError(t, err)
		assert.Nil(t, got)
		return c.Set(ctx, sampleInterface(t, loc), modTime(t, loc))
	}))

	require.NoError(t, With(ctx, root, ModeOn, func(c ports.InterfaceCache) error {
		got, err := c.Get(ctx, loc)
		require.NoError(t, err)
		assert.NotNil(t, got, "rebuild must still persist fresh entries")
		return nil
	}))
}

func TestOpen_RecreatesCorruptedDatabase(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	loc := writeModule(t, root, "pkg/__init__.py")
	require.NoError(t, os.MkdirAll(filepath.Join(root, DirName), 0o755))
	require.NoError(t, os.WriteFile(Path(root), []byte(strings.Repeat("not a sqlite file ", 256)), 0o644))

	require.NoError(t, With(ctx, root, ModeOn, func(c ports.InterfaceCache) error {
		require.NoError(t, c.Set(ctx, sampleInterface(t, loc), modTime(t, loc)))
		got, err := c.Get(ctx, loc)
		require.NoError(t, err)
		assert.NotNil(t, got)
		return nil
	}))
}

func TestWith_ReturnsCallbackError(t *testing.T) {
	boom := stderrors.New("boom")
	var opened ports.InterfaceCache
	err := With(context.Background(), t.TempDir(), ModeOn, func(c ports.InterfaceCache) error {
		opened = c
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = opened.(*storeCache).store.Count(context.Background())
	assert.Error(t, err, "cache must be closed after With returns")
}

func TestStoreCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	loc := writeModule(t, root, "pkg/__init__.py")

	require.NoError(t, With(ctx, root, ModeOn, func(c ports.InterfaceCache) error {
		require.NoError(t, c.Set(ctx, sampleInterface(t, loc), modTime(t, loc)))
		require.NoError(t, c.Invalidate(ctx, loc))

		got, err := c.Get(ctx, loc)
		require.NoError(t, err)
		assert.Nil(t, got)

		// unknown entries are not an error
		return c.Invalidate(ctx, graph.ModuleLocation{Path: "other", File: loc.File})
	}))

	c, err := Open(ctx, root, ModeOff)
	require.NoError(t, err)
	assert.NoError(t, c.Invalidate(ctx, loc))
}
