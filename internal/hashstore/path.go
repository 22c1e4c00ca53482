package hashstore

import (
	"path"
	"path/filepath"
	"strings"
)

// CanonicalPath normalizes p into the form used for every hash store key.
// Absolute paths inside root become relative to it so that `./a.c`, `a.c`
// and `/work/a.c` all map to the same key.
func CanonicalPath(root, p string) string {
	p = filepath.Clean(p)
	if filepath.IsAbs(p) && root != "" {
		if rel, err := filepath.Rel(root, p); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			p = rel
		}
	}
	return filepath.ToSlash(p)
}

// ObjectPath returns where the object for the source (or pre-existing object)
// with the given canonical key lives inside the build root.
func ObjectPath(buildRoot, key string) string {
	rel := strings.TrimSuffix(key, path.Ext(key)) + ".o"

	var prefix []string
	if path.IsAbs(rel) || filepath.IsAbs(filepath.FromSlash(rel)) {
		prefix = append(prefix, "_abs")
		rel = strings.TrimLeft(strings.TrimPrefix(rel, filepath.VolumeName(filepath.FromSlash(rel))), "/")
	}

	elems := strings.Split(rel, "/")
	for i, e := range elems {
		if e == ".." {
			elems[i] = "_parent_"
		}
	}
	return filepath.Join(append([]string{buildRoot}, append(prefix, elems...)...)...)
}
