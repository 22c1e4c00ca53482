package builder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/qobs-build/bearmake/internal/inventory"
	"github.com/qobs-build/bearmake/internal/msg"
	"github.com/qobs-build/bearmake/internal/toolchain"
)

// checkObjectCollisions rejects a source whose compiler output would land
// on a pre-built object of the manifest, and two inputs sharing one object
// path in the build tree
func (b *Builder) checkObjectCollisions(inv *inventory.Inventory) error {
	prebuilt := make(map[string]string, len(inv.Objects))
	owners := make(map[string]string, len(inv.Objects)+len(inv.Sources))
	for _, obj := range inv.Objects {
		prebuilt[b.abs(obj)] = obj
		owners[b.objectPath(obj)] = obj
	}
	for _, src := range inv.Sources {
		if obj, ok := prebuilt[b.producedObject(src)]; ok {
			return ioError(src, fmt.Errorf("compiling it would overwrite the pre-built object %s", obj))
		}
		dst := b.objectPath(src)
		if other, ok := owners[dst]; ok {
			return ioError(src, fmt.Errorf("its object %s is also the object of %s", dst, other))
		}
		owners[dst] = src
	}
	return nil
}

// stagePrebuiltObjects copies the manifest's .o files into the build tree
// and returns their new paths, in inventory order
func (b *Builder) stagePrebuiltObjects(inv *inventory.Inventory) ([]string, error) {
	objects := make([]string, 0, len(inv.Objects)+len(inv.Sources))
	for _, obj := range inv.Objects {
		dst := b.objectPath(obj)
		if err := os.MkdirAll(filepath.Dir(b.abs(dst)), 0755); err != nil {
			return nil, ioError(filepath.Dir(dst), err)
		}
		if err := copyFile(b.abs(obj), b.abs(dst)); err != nil {
			return nil, ioError(obj, err)
		}
		objects = append(objects, dst)
	}
	return objects, nil
}

// link runs `<linker> <flags> -o <exe> <inputs...> <FLAGS...>` and fills in
// the executable and command of res
func (b *Builder) link(res *Result, linker string, flags, inputs []string) error {
	exe := b.executableName()

	args := make([]string, 0, len(flags)+len(inputs)+len(b.manifest.Flags)+2)
	args = append(args, flags...)
	args = append(args, "-o", exe)
	args = append(args, inputs...)
	args = append(args, b.manifest.Flags...)

	res.LinkCommand = append([]string{linker}, args...)

	msg.Step("CREATING PROGRAM", exe)
	msg.Command(toolchain.CommandLine(linker, args))

	out, err := b.runner.Run(b.workdir, linker, args...)
	if err != nil {
		return &Error{Kind: KindLink, Path: exe, Output: out.Diagnostics(), Err: err}
	}
	if diag := out.Diagnostics(); diag != "" {
		msg.Diagnostics(diag)
		b.log.Printf("warnings from linking %s:\n%s", exe, diag)
	}

	b.log.Printf("linked %s", exe)
	res.Executable = exe
	return nil
}
