package builder

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/qobs-build/bearmake/internal/deps"
	"github.com/qobs-build/bearmake/internal/hashstore"
	"github.com/qobs-build/bearmake/internal/inventory"
	"github.com/qobs-build/bearmake/internal/logging"
	"github.com/qobs-build/bearmake/internal/manifest"
	"github.com/qobs-build/bearmake/internal/msg"
	"github.com/qobs-build/bearmake/internal/toolchain"
)

// Options is everything a run is configured with. It is not modified once
// a Builder exists.
type Options struct {
	Workdir      string // relative manifest paths and the build root resolve against it
	ManifestPath string
	Release      bool
	NoCache      bool             // rebuild everything in one invocation, never touch the hash store
	Runner       toolchain.Runner // nil means real child processes
}

// Result describes a finished build
type Result struct {
	RunID       string // tags this run's lines in the build log, empty without one
	Compiled    []string
	Skipped     []string
	Executable  string
	LinkCommand []string
	Elapsed     time.Duration
}

type Builder struct {
	opts     Options
	manifest *manifest.Manifest
	profile  ProfileSection
	runner   toolchain.Runner
	cc, cxx  string
	workdir  string
	buildDir string // as configured, relative to workdir unless absolute
	log      *logging.Logger
}

func NewBuilder(opts Options) (*Builder, error) {
	workdir := opts.Workdir
	if workdir == "" {
		workdir = "."
	}
	workdir, err := filepath.Abs(workdir)
	if err != nil {
		return nil, err
	}

	manifestPath := opts.ManifestPath
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(workdir, manifestPath)
	}

	settings, err := LoadSettings(filepath.Join(filepath.Dir(manifestPath), SettingsFilename))
	if err != nil {
		return nil, err
	}

	profileName := ProfileDebug
	if opts.Release {
		profileName = ProfileRelease
	}
	profile, err := settings.profile(profileName)
	if err != nil {
		return nil, err
	}

	m, err := manifest.ParseFile(manifestPath, manifest.NewEnv(opts.Release))
	if err != nil {
		return nil, err
	}

	runner := opts.Runner
	if runner == nil {
		runner = toolchain.ExecRunner{}
	}

	cc, cxx := settings.Toolchain.CC, settings.Toolchain.CXX
	if cc == "" {
		cc = toolchain.FindCompiler(false)
	}
	if cxx == "" {
		cxx = toolchain.FindCompiler(true)
	}

	return &Builder{
		opts:     opts,
		manifest: m,
		profile:  profile,
		runner:   runner,
		cc:       cc,
		cxx:      cxx,
		workdir:  workdir,
		buildDir: filepath.Clean(settings.Build.Dir),
	}, nil
}

// abs resolves a workdir-relative (or absolute) path for file system access
func (b *Builder) abs(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.workdir, p)
}

func (b *Builder) objectPath(key string) string {
	return hashstore.ObjectPath(b.buildDir, key)
}

func (b *Builder) compilerFor(src string) string {
	if toolchain.IsCxx(src) {
		return b.cxx
	}
	return b.cc
}

func (b *Builder) linker(inv *inventory.Inventory) string {
	for _, src := range inv.Sources {
		if toolchain.IsCxx(src) {
			return b.cxx
		}
	}
	return b.cc
}

// compileFlags is what every -c and -MM invocation gets besides the source
func (b *Builder) compileFlags() []string {
	flags := b.profile.compileFlags()
	return append(flags, b.manifest.Cflags...)
}

func (b *Builder) executableName() string {
	name := b.manifest.ExecutableName
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		name += ".exe"
	}
	return name
}

// Build runs inventory resolution, staging of pre-built objects, staleness
// checks, compilation, the hash store commit and the final link, in that
// order. Any error aborts the run;
// a compile error leaves the hash store as it was.
func (b *Builder) Build() (*Result, error) {
	start := time.Now()

	skip := b.abs(b.buildDir)
	if skip == b.workdir {
		skip = ""
	}
	inv, err := inventory.Resolve(b.workdir, b.manifest, skip)
	if err != nil {
		return nil, ioError("", err)
	}

	if b.opts.NoCache {
		return b.buildUncached(inv, start)
	}

	b.log, err = logging.New(b.abs(b.buildDir))
	if err != nil {
		return nil, ioError(b.buildDir, err)
	}
	defer func() {
		b.log.Close()
		b.log = nil
	}()
	msg.Debug("run %s, logging to %s", b.log.RunID(), filepath.Join(b.buildDir, logging.Filename))
	b.log.Printf("build %s (%d sources, %d objects, release=%v)", b.manifest.ExecutableName, len(inv.Sources), len(inv.Objects), b.opts.Release)

	store := hashstore.New(b.abs(b.buildDir))
	records, err := store.Load()
	if err != nil {
		return nil, ioError(store.Path(), err)
	}

	if err := b.checkObjectCollisions(inv); err != nil {
		return nil, err
	}
	objects, err := b.stagePrebuiltObjects(inv)
	if err != nil {
		return nil, err
	}

	extractor := &deps.Extractor{
		Runner:    b.runner,
		Dir:       b.workdir,
		OnFailure: b.dependencyListingFailed,
	}
	detector := newDetector(b, records, extractor)

	res := &Result{RunID: b.log.RunID()}
	for _, src := range inv.Sources {
		verdict, err := detector.Check(src)
		if err != nil {
			return nil, err
		}
		if !verdict.Stale {
			msg.Debug("%s is up to date", src)
			res.Skipped = append(res.Skipped, src)
			continue
		}

		b.log.Printf("stale %s: %s", src, joinReasons(verdict.Reasons))
		msg.Debug("%s is stale: %s", src, joinReasons(verdict.Reasons))
		if err := b.compile(src, records); err != nil {
			b.log.Printf("abort: %v", err)
			return nil, err
		}
		res.Compiled = append(res.Compiled, src)
	}

	if err := store.Save(records); err != nil {
		return nil, ioError(store.Path(), err)
	}

	for _, src := range inv.Sources {
		objects = append(objects, b.objectPath(src))
	}

	if err := b.link(res, b.linker(inv), b.profile.linkFlags(), objects); err != nil {
		b.log.Printf("abort: %v", err)
		return nil, err
	}

	res.Elapsed = time.Since(start)
	b.log.Printf("done in %s: %d compiled, %d up to date", res.Elapsed.Round(time.Millisecond), len(res.Compiled), len(res.Skipped))
	msg.Step("FINISHED", fmt.Sprintf("%s in %.2fs", res.Executable, res.Elapsed.Seconds()))
	return res, nil
}

// buildUncached hands every source and object to a single compiler
// invocation
func (b *Builder) buildUncached(inv *inventory.Inventory, start time.Time) (*Result, error) {
	inputs := append([]string{}, b.manifest.Cflags...)
	inputs = append(inputs, inv.Sources...)
	inputs = append(inputs, inv.Objects...)

	res := &Result{Compiled: inv.Sources}
	if err := b.link(res, b.linker(inv), b.profile.linkFlags(), inputs); err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	msg.Step("FINISHED", fmt.Sprintf("%s in %.2fs", res.Executable, res.Elapsed.Seconds()))
	return res, nil
}

func (b *Builder) dependencyListingFailed(src string, err error) {
	msg.Warn("could not list header dependencies of %s, header changes will not trigger a rebuild: %v", src, err)
	b.log.Printf("dependency listing failed for %s: %v", src, err)
}

func joinReasons(reasons []Reason) string {
	s := make([]string, len(reasons))
	for i, r := range reasons {
		s[i] = string(r)
	}
	return strings.Join(s, ", ")
}

// BuildAndRun builds the executable and runs it with args
func (b *Builder) BuildAndRun(args []string) error {
	res, err := b.Build()
	if err != nil {
		return err
	}
	if res.Executable == "" {
		return errCantRunUnlinked
	}

	cmd := exec.Command(b.abs(res.Executable), args...)
	cmd.Dir = b.workdir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}

// Clean removes the build root, which forces a full rebuild next time
func (b *Builder) Clean() error {
	root := b.abs(b.buildDir)
	if root == b.workdir {
		return fmt.Errorf("refusing to remove build root %s: it is the working directory", root)
	}
	if err := os.RemoveAll(root); err != nil {
		return ioError(b.buildDir, err)
	}
	return nil
}

// BuildRoot returns the absolute path of the build root
func (b *Builder) BuildRoot() string { return b.abs(b.buildDir) }
