// Package inventory turns a manifest's files and directories into the
// flat list of sources, headers and pre-built objects of a build.
package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/qobs-build/bearmake/internal/hashstore"
	"github.com/qobs-build/bearmake/internal/manifest"
)

// Kind classifies a file by extension
type Kind int

const (
	KindOther Kind = iota
	KindSource
	KindHeader
	KindObject
)

func Classify(path string) Kind {
	switch filepath.Ext(path) {
	case ".c", ".cpp":
		return KindSource
	case ".h", ".hpp":
		return KindHeader
	case ".o":
		return KindObject
	}
	return KindOther
}

// Inventory holds canonical paths in discovery order
type Inventory struct {
	Sources []string
	Headers []string
	Objects []string

	seen map[string]bool
}

func (inv *Inventory) add(key string) {
	if inv.seen[key] {
		return
	}
	switch Classify(key) {
	case KindSource:
		inv.Sources = append(inv.Sources, key)
	case KindHeader:
		inv.Headers = append(inv.Headers, key)
	case KindObject:
		inv.Objects = append(inv.Objects, key)
	default:
		return
	}
	inv.seen[key] = true
}

// Resolve collects explicit files first, then everything under each
// directory. Relative paths are taken relative to root. The directory skip
// (the build root, holding the build's own objects) is never walked into
// and nothing inside it is collected.
func Resolve(root string, m *manifest.Manifest, skip string) (*Inventory, error) {
	inv := &Inventory{seen: make(map[string]bool)}
	if skip != "" {
		skip = realPath(abs(root, skip))
	}

	for _, file := range m.Files {
		files, err := expandFile(root, file)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if skip != "" && within(realPath(abs(root, f)), skip) {
				continue
			}
			inv.add(hashstore.CanonicalPath(root, f))
		}
	}

	for _, dir := range m.Directories {
		files, err := walk(root, dir, skip)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			key := hashstore.CanonicalPath(root, f)
			excluded, err := isExcluded(key, m.Excludes)
			if err != nil {
				return nil, err
			}
			if !excluded {
				inv.add(key)
			}
		}
	}

	return inv, nil
}

func abs(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// realPath resolves symlinks, falling back to the cleaned path when p does
// not exist (yet)
func realPath(p string) string {
	if real, err := filepath.EvalSymlinks(p); err == nil {
		return real
	}
	return filepath.Clean(p)
}

func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// expandFile returns the file itself, or the sorted matches when it is a glob
func expandFile(root, file string) ([]string, error) {
	if !hasMeta(file) {
		stat, err := os.Stat(abs(root, file))
		if err != nil {
			return nil, fmt.Errorf("FILE %s: %w", file, err)
		}
		if stat.IsDir() {
			return nil, fmt.Errorf("FILE %s is a directory, use DIRECTORY", file)
		}
		return []string{file}, nil
	}

	var matches []string
	var err error
	if filepath.IsAbs(file) {
		matches, err = doublestar.FilepathGlob(file, doublestar.WithFilesOnly())
	} else {
		matches, err = doublestar.Glob(os.DirFS(root), filepath.ToSlash(file), doublestar.WithFilesOnly())
	}
	if err != nil {
		return nil, fmt.Errorf("FILE %s: %w", file, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("FILE %s: no files match", file)
	}
	slices.Sort(matches)
	return matches, nil
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

func isExcluded(key string, patterns []string) (bool, error) {
	for _, pat := range patterns {
		ok, err := doublestar.Match(filepath.ToSlash(pat), key)
		if err != nil {
			return false, fmt.Errorf("EXCLUDE %s: %w", pat, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// walk lists every regular file under dir (as root-relative or absolute
// paths, matching how dir was given). Symlinked directories are followed
// once: a directory whose real path was already visited is skipped, which
// also breaks symlink cycles. The directory skip is treated as visited.
func walk(root, dir, skip string) ([]string, error) {
	stat, err := os.Stat(abs(root, dir))
	if err != nil {
		return nil, fmt.Errorf("DIRECTORY %s: %w", dir, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("DIRECTORY %s is not a directory", dir)
	}

	visited := make(map[string]bool)
	if skip != "" {
		visited[skip] = true
	}
	var files []string
	stack := []string{dir}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		real, err := filepath.EvalSymlinks(abs(root, cur))
		if err != nil {
			return nil, err
		}
		if visited[real] {
			continue
		}
		visited[real] = true

		entries, err := os.ReadDir(abs(root, cur))
		if err != nil {
			return nil, err
		}

		// push in reverse so children pop in lexical order, depth first
		var subdirs []string
		for _, e := range entries {
			p := filepath.Join(cur, e.Name())
			info, err := os.Stat(abs(root, p))
			if err != nil {
				continue // dangling symlink
			}
			if info.IsDir() {
				subdirs = append(subdirs, p)
			} else if info.Mode().IsRegular() {
				files = append(files, p)
			}
		}
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	return files, nil
}
