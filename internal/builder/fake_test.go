package builder

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/qobs-build/bearmake/internal/toolchain"
	"github.com/stretchr/testify/require"
)

var errExit1 = errors.New("exit status 1")

// fakeToolchain stands in for gcc: -MM reports the configured headers,
// -c copies the source into <basename>.o, anything else is a link that
// writes the executable.
type fakeToolchain struct {
	headers     map[string][]string // source -> headers reported by -MM
	failCompile map[string]string   // source -> diagnostics
	warnings    map[string]string   // source -> stderr on success
	failDeps    bool
	failLink    string

	calls [][]string
}

func newFakeToolchain() *fakeToolchain {
	return &fakeToolchain{
		headers:     make(map[string][]string),
		failCompile: make(map[string]string),
		warnings:    make(map[string]string),
	}
}

func (f *fakeToolchain) Run(dir, name string, args ...string) (toolchain.Output, error) {
	f.calls = append(f.calls, append([]string{name}, args...))

	switch args[0] {
	case "-MM":
		src := args[len(args)-1]
		if f.failDeps {
			return toolchain.Output{Stderr: "cc1: fatal error"}, errExit1
		}
		target := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".o"
		prereqs := append([]string{src}, f.headers[src]...)
		return toolchain.Output{Stdout: target + ": " + strings.Join(prereqs, " \\\n ") + "\n"}, nil

	case "-c":
		src := args[len(args)-1]
		if diag, ok := f.failCompile[src]; ok {
			return toolchain.Output{Stderr: diag}, errExit1
		}
		data, err := os.ReadFile(filepath.Join(dir, src))
		if err != nil {
			return toolchain.Output{Stderr: err.Error()}, errExit1
		}
		obj := filepath.Join(dir, strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))+".o")
		if err := os.WriteFile(obj, data, 0644); err != nil {
			return toolchain.Output{}, err
		}
		return toolchain.Output{Stderr: f.warnings[src]}, nil
	}

	if f.failLink != "" {
		return toolchain.Output{Stderr: f.failLink}, errExit1
	}
	i := slices.Index(args, "-o")
	if err := os.WriteFile(filepath.Join(dir, args[i+1]), []byte(strings.Join(args, " ")), 0755); err != nil {
		return toolchain.Output{}, err
	}
	return toolchain.Output{}, nil
}

// compiled lists the sources passed to -c, in call order
func (f *fakeToolchain) compiled() []string {
	var srcs []string
	for _, call := range f.calls {
		if call[1] == "-c" {
			srcs = append(srcs, call[len(call)-1])
		}
	}
	return srcs
}

func (f *fakeToolchain) reset() { f.calls = nil }

// project is a throwaway source tree with a manifest
type project struct {
	t    *testing.T
	root string
	tc   *fakeToolchain
}

func newProject(t *testing.T, manifestText string) *project {
	t.Helper()
	t.Setenv("CC", "cc-test")
	t.Setenv("CXX", "cxx-test")

	p := &project{t: t, root: t.TempDir(), tc: newFakeToolchain()}
	p.write("make.bear", manifestText)
	return p
}

func (p *project) write(name, content string) {
	p.t.Helper()
	path := filepath.Join(p.root, filepath.FromSlash(name))
	require.NoError(p.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(p.t, os.WriteFile(path, []byte(content), 0644))
}

func (p *project) path(name string) string {
	return filepath.Join(p.root, filepath.FromSlash(name))
}

func (p *project) builder(opts Options) *Builder {
	p.t.Helper()
	opts.Workdir = p.root
	opts.ManifestPath = "make.bear"
	opts.Runner = p.tc
	b, err := NewBuilder(opts)
	require.NoError(p.t, err)
	return b
}

func (p *project) build(opts Options) (*Result, error) {
	p.t.Helper()
	p.tc.reset()
	return p.builder(opts).Build()
}

func (p *project) records() map[string]string {
	p.t.Helper()
	data, err := os.ReadFile(p.path("build/hashes"))
	require.NoError(p.t, err)

	records := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		k, v, ok := strings.Cut(line, "=")
		require.True(p.t, ok, line)
		records[k] = v
	}
	return records
}
