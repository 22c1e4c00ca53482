package builder

import (
	"errors"
	"fmt"

	"github.com/qobs-build/bearmake/internal/toolchain"
)

var (
	errCantRunUnlinked = errors.New("nothing to run: build did not produce an executable")
)

// Kind tells fatal build errors apart
type Kind int

const (
	KindIO Kind = iota + 1
	KindCompile
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindCompile:
		return "compile"
	case KindLink:
		return "link"
	}
	return "unknown"
}

// Error is a fatal build error. Output holds the tool's diagnostics for
// compile and link failures.
type Error struct {
	Kind   Kind
	Path   string
	Output string
	Err    error
}

func (e *Error) Error() string {
	var s string
	switch e.Kind {
	case KindCompile:
		s = fmt.Sprintf("compiling %s failed: %s", e.Path, e.cause())
	case KindLink:
		s = fmt.Sprintf("linking %s failed: %s", e.Path, e.cause())
	default:
		if e.Path != "" {
			s = fmt.Sprintf("%s: %v", e.Path, e.Err)
		} else {
			s = e.Err.Error()
		}
	}
	if e.Output != "" {
		s += "\n" + e.Output
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// cause describes a tool failure by its exit code when the tool ran
func (e *Error) cause() string {
	if code := toolchain.ExitCode(e.Err); code > 0 {
		return fmt.Sprintf("exit code %d", code)
	}
	return e.Err.Error()
}

func ioError(path string, err error) error {
	return &Error{Kind: KindIO, Path: path, Err: err}
}

// IsKind reports whether err is a build error of the given kind
func IsKind(err error, kind Kind) bool {
	var berr *Error
	return errors.As(err, &berr) && berr.Kind == kind
}
