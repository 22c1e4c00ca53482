package builder

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/qobs-build/bearmake/internal/hashstore"
	"github.com/qobs-build/bearmake/internal/msg"
	"github.com/qobs-build/bearmake/internal/toolchain"
)

// compile runs `<compiler> -c <flags> <src>` in the work dir, moves the
// resulting object into the build tree and records the source digest.
// records is only touched on success.
func (b *Builder) compile(src string, records map[string]string) error {
	compiler := b.compilerFor(src)
	flags := b.compileFlags()
	args := make([]string, 0, len(flags)+2)
	args = append(args, "-c")
	args = append(args, flags...)
	args = append(args, src)

	msg.Step("COMPILING / RECOMPILING", src)
	msg.Command(toolchain.CommandLine(compiler, args))

	out, err := b.runner.Run(b.workdir, compiler, args...)
	if err != nil {
		return &Error{Kind: KindCompile, Path: src, Output: out.Diagnostics(), Err: err}
	}
	if diag := out.Diagnostics(); diag != "" {
		msg.Diagnostics(diag)
		b.log.Printf("warnings from %s:\n%s", src, diag)
	}

	produced := b.producedObject(src)
	obj := b.objectPath(src)
	if err := os.MkdirAll(filepath.Dir(b.abs(obj)), 0755); err != nil {
		return ioError(filepath.Dir(obj), err)
	}
	if err := moveFile(produced, b.abs(obj)); err != nil {
		return ioError(obj, err)
	}

	digest, err := hashstore.Digest(b.abs(src))
	if err != nil {
		return ioError(src, err)
	}
	if old, ok := records[src]; ok {
		msg.Info("file changed: %s %s -> %s", src, short(old), short(digest))
	} else {
		msg.Info("new file: %s %s", src, short(digest))
	}
	b.log.Printf("compiled %s -> %s (%s)", src, obj, digest)
	records[src] = digest
	return nil
}

// producedObject is where the compiler drops the object of src: <basename>.o
// in its working directory
func (b *Builder) producedObject(src string) string {
	return filepath.Join(b.workdir, strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))+".o")
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

// moveFile renames src to dst, copying when they sit on different devices
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	} else if errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile copies contents, permission bits and modification time
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, stat.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, stat.ModTime(), stat.ModTime())
}
