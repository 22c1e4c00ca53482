package builder

import (
	"errors"
	"os"
	"slices"

	"github.com/qobs-build/bearmake/internal/hashstore"
)

// Reason explains why a source has to be recompiled
type Reason string

const (
	ReasonMissingObject Reason = "missing-object"
	ReasonNewSource     Reason = "new-source"
	ReasonSourceChanged Reason = "source-changed"
	ReasonHeaderNew     Reason = "header-new"
	ReasonHeaderChanged Reason = "header-changed"
	// ReasonHeaderShared marks a source including a header whose change was
	// already recorded earlier in this run. The refreshed record alone would
	// make the header look current, so every later includer is rebuilt too.
	ReasonHeaderShared Reason = "header-shared"
)

// Verdict is the outcome of a staleness check. Once Stale is set nothing
// clears it.
type Verdict struct {
	Stale   bool
	Reasons []Reason
	Headers []string
}

func (v *Verdict) mark(r Reason) {
	v.Stale = true
	if !slices.Contains(v.Reasons, r) {
		v.Reasons = append(v.Reasons, r)
	}
}

type dependencyLister interface {
	Extract(compiler string, cflags []string, src string) []string
}

// Detector decides recompile-or-skip for each source of a run. It mutates
// records: a header whose digest is new or differs is written back at the
// moment the difference is seen.
type Detector struct {
	records map[string]string
	deps    dependencyLister

	// hooks into the builder's view of the file system and toolchain
	objectPath  func(src string) string
	diskPath    func(key string) string
	compilerFor func(src string) string
	cflags      []string

	changedHeaders map[string]bool
	headerDigests  map[string]string
}

func newDetector(b *Builder, records map[string]string, deps dependencyLister) *Detector {
	return &Detector{
		records:        records,
		deps:           deps,
		objectPath:     b.objectPath,
		diskPath:       b.abs,
		compilerFor:    b.compilerFor,
		cflags:         b.compileFlags(),
		changedHeaders: make(map[string]bool),
		headerDigests:  make(map[string]string),
	}
}

// Check evaluates every staleness rule for src. The dependency listing is
// consulted even when the source is already known to be stale so header
// digests get recorded on the very first build.
func (d *Detector) Check(src string) (Verdict, error) {
	var v Verdict

	if _, err := os.Stat(d.diskPath(d.objectPath(src))); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return v, ioError(d.objectPath(src), err)
		}
		v.mark(ReasonMissingObject)
	}

	if prev, ok := d.records[src]; !ok {
		v.mark(ReasonNewSource)
	} else {
		digest, err := hashstore.Digest(d.diskPath(src))
		if err != nil {
			return v, ioError(src, err)
		}
		if digest != prev {
			v.mark(ReasonSourceChanged)
		}
	}

	v.Headers = d.deps.Extract(d.compilerFor(src), d.cflags, src)
	for _, h := range v.Headers {
		if d.changedHeaders[h] {
			v.mark(ReasonHeaderShared)
			continue
		}

		digest, err := d.headerDigest(h)
		if err != nil {
			return v, ioError(h, err)
		}

		prev, ok := d.records[h]
		switch {
		case !ok:
			v.mark(ReasonHeaderNew)
		case prev != digest:
			v.mark(ReasonHeaderChanged)
		default:
			continue
		}
		d.records[h] = digest
		d.changedHeaders[h] = true
	}

	return v, nil
}

// headers are hashed at most once per run
func (d *Detector) headerDigest(h string) (string, error) {
	if digest, ok := d.headerDigests[h]; ok {
		return digest, nil
	}
	digest, err := hashstore.Digest(d.diskPath(h))
	if err != nil {
		return "", err
	}
	d.headerDigests[h] = digest
	return digest, nil
}
