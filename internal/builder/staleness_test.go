package builder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticDeps map[string][]string

func (d staticDeps) Extract(_ string, _ []string, src string) []string { return d[src] }

func newTestDetector(t *testing.T, root string, records map[string]string, deps staticDeps) *Detector {
	t.Helper()
	b := &Builder{workdir: root, buildDir: "build", cc: "cc", cxx: "c++"}
	return &Detector{
		records:        records,
		deps:           deps,
		objectPath:     b.objectPath,
		diskPath:       b.abs,
		compilerFor:    b.compilerFor,
		changedHeaders: make(map[string]bool),
		headerDigests:  make(map[string]string),
	}
}

func writeAll(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func TestDetectorReasons(t *testing.T) {
	root := t.TempDir()
	writeAll(t, root, map[string]string{
		"a.c": "a", "b.c": "b", "c.c": "c", "d.c": "d",
		"x.h": "x2", "y.h": "y",
		"build/a.o": "", "build/b.o": "", "build/c.o": "", "build/d.o": "",
	})
	digest := func(name string) string { return digestOf(t, filepath.Join(root, name)) }

	records := map[string]string{
		"a.c": digest("a.c"),
		"b.c": "stale",
		"c.c": digest("c.c"),
		"d.c": digest("d.c"),
		"x.h": "old",
		"y.h": digest("y.h"),
	}
	d := newTestDetector(t, root, records, staticDeps{
		"a.c": {"y.h"},
		"c.c": {"x.h", "y.h"},
		"d.c": {"x.h"},
	})

	v, err := d.Check("a.c")
	require.NoError(t, err)
	assert.False(t, v.Stale)

	v, err = d.Check("b.c")
	require.NoError(t, err)
	assert.Equal(t, []Reason{ReasonSourceChanged}, v.Reasons)

	v, err = d.Check("c.c")
	require.NoError(t, err)
	assert.Equal(t, []Reason{ReasonHeaderChanged}, v.Reasons)
	assert.Equal(t, digest("x.h"), records["x.h"])

	// x.h is already current in records but still counts for d.c
	v, err = d.Check("d.c")
	require.NoError(t, err)
	assert.True(t, v.Stale)
	assert.Equal(t, []Reason{ReasonHeaderShared}, v.Reasons)
}

func TestDetectorNewSourceStillRecordsHeaders(t *testing.T) {
	root := t.TempDir()
	writeAll(t, root, map[string]string{"main.c": "m", "util.h": "u"})
	records := map[string]string{}
	d := newTestDetector(t, root, records, staticDeps{"main.c": {"util.h"}})

	v, err := d.Check("main.c")
	require.NoError(t, err)
	assert.Equal(t, []Reason{ReasonMissingObject, ReasonNewSource, ReasonHeaderNew}, v.Reasons)
	assert.Equal(t, []string{"util.h"}, v.Headers)
	assert.Equal(t, digestOf(t, filepath.Join(root, "util.h")), records["util.h"])
	assert.NotContains(t, records, "main.c")
}

func TestDetectorUnreadableHeaderIsIOError(t *testing.T) {
	root := t.TempDir()
	writeAll(t, root, map[string]string{"main.c": "m"})
	d := newTestDetector(t, root, map[string]string{}, staticDeps{"main.c": {"gone.h"}})

	_, err := d.Check("main.c")
	assert.True(t, IsKind(err, KindIO))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
