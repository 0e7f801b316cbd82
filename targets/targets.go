// Package targets classifies configured coverage target strings as either
// compiled binaries or file globs and resolves them against the project on
// disk.
package targets

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/mod/modfile"
)

// Metadata is the minimal project context target resolution consults. It is
// derived from configuration, not from scanning the whole project.
type Metadata struct {
	// Root is the project root directory.
	Root string
	// Binaries lists binary names declared directly in configuration.
	Binaries []string
	// SourcePatterns restricts which files a glob target may match,
	// e.g. "scripts/**/*.sh".
	SourcePatterns []string
}

// Resolved is a coverage target after classification. Exactly one of the
// concrete types Binary and FileSet implements it.
type Resolved interface {
	// Target returns the original target string.
	Target() string
}

// Binary is a compiled binary target, covered via an instrumented build.
type Binary struct {
	Name string
	// Path is filled in by the build step, empty until then.
	Path string
}

func (b Binary) Target() string { return b.Name }

// FileSet is a glob target resolved to concrete files, covered by wrapping
// the suite in an external instrumentation tool.
type FileSet struct {
	Pattern string
	Files   []string
}

func (f FileSet) Target() string { return f.Pattern }

// ResolutionError names a target that could not be resolved.
type ResolutionError struct {
	Target  string
	Message string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Target, e.Message)
}

// IsGlob reports whether a target string contains glob metacharacters and
// must therefore resolve to a FileSet.
func IsGlob(target string) bool {
	return strings.ContainsAny(target, "*?[")
}

// Resolve classifies one target string. Globs match files under meta.Root
// restricted to meta.SourcePatterns; plain names are looked up first in the
// configured binary list, then in project build metadata.
func Resolve(target string, meta Metadata) (Resolved, error) {
	if IsGlob(target) {
		return resolveFileSet(target, meta)
	}
	return resolveBinary(target, meta)
}

// ResolveAll resolves every target string, failing on the first unresolvable
// one.
func ResolveAll(targets []string, meta Metadata) ([]Resolved, error) {
	resolved := make([]Resolved, 0, len(targets))
	for _, t := range targets {
		r, err := Resolve(t, meta)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}
	return resolved, nil
}

func resolveBinary(name string, meta Metadata) (Resolved, error) {
	for _, b := range meta.Binaries {
		if b == name {
			return Binary{Name: name}, nil
		}
	}
	if declaresCargoBinary(meta.Root, name) {
		return Binary{Name: name}, nil
	}
	if declaresGoBinary(meta.Root, name) {
		return Binary{Name: name}, nil
	}
	return nil, &ResolutionError{
		Target:  name,
		Message: "not a known binary or glob pattern",
	}
}

// cargoManifest is the subset of Cargo.toml needed for binary detection.
type cargoManifest struct {
	Package *struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Bin []struct {
		Name string `toml:"name"`
	} `toml:"bin"`
}

func declaresCargoBinary(root, name string) bool {
	data, err := os.ReadFile(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		return false
	}
	var manifest cargoManifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return false
	}
	for _, b := range manifest.Bin {
		if b.Name == name {
			return true
		}
	}
	// The package name is the default binary target.
	return manifest.Package != nil && manifest.Package.Name == name
}

func declaresGoBinary(root, name string) bool {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return false
	}
	mod, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil || mod.Module == nil {
		return false
	}
	// A main package named after the module, or a cmd/<name> directory.
	if filepath.Base(mod.Module.Mod.Path) == name {
		return true
	}
	info, err := os.Stat(filepath.Join(root, "cmd", name))
	return err == nil && info.IsDir()
}

func resolveFileSet(pattern string, meta Metadata) (Resolved, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, &ResolutionError{Target: pattern, Message: "invalid glob pattern"}
	}
	files := matchFiles(meta.Root, pattern, meta.SourcePatterns)
	if len(files) == 0 {
		return nil, &ResolutionError{Target: pattern, Message: "no files match pattern"}
	}
	return FileSet{Pattern: pattern, Files: files}, nil
}

// matchFiles walks the project and keeps files matching both the target
// pattern and at least one source pattern. Hidden directories and common
// build output directories are skipped.
func matchFiles(root, pattern string, sourcePatterns []string) []string {
	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "target") {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if ok, _ := doublestar.Match(pattern, rel); !ok {
			return nil
		}
		if len(sourcePatterns) > 0 && !matchesAny(rel, sourcePatterns) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	sort.Strings(files)
	return files
}

func matchesAny(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// BinaryNames extracts the binary names from a resolved target list.
func BinaryNames(resolved []Resolved) []string {
	var names []string
	for _, r := range resolved {
		if b, ok := r.(Binary); ok {
			names = append(names, b.Name)
		}
	}
	return names
}

// ScriptFiles flattens every FileSet in a resolved target list.
func ScriptFiles(resolved []Resolved) []string {
	var files []string
	for _, r := range resolved {
		if f, ok := r.(FileSet); ok {
			files = append(files, f.Files...)
		}
	}
	return files
}
