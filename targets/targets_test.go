package targets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIsGlob(t *testing.T) {
	assert.True(t, IsGlob("scripts/*.sh"))
	assert.True(t, IsGlob("lib/?.sh"))
	assert.True(t, IsGlob("x[ab].sh"))
	assert.False(t, IsGlob("mytool"))
	assert.False(t, IsGlob("scripts/run.sh"))
}

func TestResolveConfiguredBinary(t *testing.T) {
	meta := Metadata{Root: t.TempDir(), Binaries: []string{"mytool"}}
	r, err := Resolve("mytool", meta)
	require.NoError(t, err)
	bin, ok := r.(Binary)
	require.True(t, ok)
	assert.Equal(t, "mytool", bin.Name)
	assert.Empty(t, bin.Path)
}

func TestResolveCargoBinary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", `
[package]
name = "mycrate"

[[bin]]
name = "helper"
path = "src/bin/helper.rs"
`)

	for _, name := range []string{"mycrate", "helper"} {
		r, err := Resolve(name, Metadata{Root: root})
		require.NoError(t, err)
		assert.IsType(t, Binary{}, r)
	}

	_, err := Resolve("unknown", Metadata{Root: root})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")
}

func TestResolveGoBinary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module example.com/mytool\n\ngo 1.24\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cmd", "helper"), 0o755))

	for _, name := range []string{"mytool", "helper"} {
		r, err := Resolve(name, Metadata{Root: root})
		require.NoError(t, err)
		assert.IsType(t, Binary{}, r)
	}
}

func TestResolveGlobAlwaysFileSet(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "scripts/a.sh", "#!/bin/sh\n")
	writeFile(t, root, "scripts/b.sh", "#!/bin/sh\n")
	writeFile(t, root, "scripts/readme.md", "")
	meta := Metadata{Root: root, SourcePatterns: []string{"**/*.sh"}}

	r, err := Resolve("scripts/*.sh", meta)
	require.NoError(t, err)
	fs, ok := r.(FileSet)
	require.True(t, ok)
	assert.Len(t, fs.Files, 2)
	assert.Equal(t, "scripts/*.sh", fs.Pattern)
}

func TestResolveGlobNoMatchesIsError(t *testing.T) {
	meta := Metadata{Root: t.TempDir(), SourcePatterns: []string{"**/*.sh"}}
	_, err := Resolve("scripts/*.sh", meta)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files match")
}

func TestResolveGlobSkipsIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "scripts/a.sh", "")
	writeFile(t, root, "node_modules/pkg/b.sh", "")
	writeFile(t, root, ".git/hooks/c.sh", "")
	meta := Metadata{Root: root, SourcePatterns: []string{"**/*.sh"}}

	r, err := Resolve("**/*.sh", meta)
	require.NoError(t, err)
	fs := r.(FileSet)
	require.Len(t, fs.Files, 1)
	assert.Contains(t, fs.Files[0], "scripts")
}

func TestResolveAll(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "scripts/a.sh", "")
	meta := Metadata{
		Root:           root,
		Binaries:       []string{"mytool"},
		SourcePatterns: []string{"**/*.sh"},
	}

	resolved, err := ResolveAll([]string{"mytool", "scripts/*.sh"}, meta)
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, []string{"mytool"}, BinaryNames(resolved))
	assert.Len(t, ScriptFiles(resolved), 1)

	_, err = ResolveAll([]string{"mytool", "nope"}, meta)
	require.Error(t, err)
}
