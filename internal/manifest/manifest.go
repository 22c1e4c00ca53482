// Package manifest parses bearmake manifests:
//
//	# comment
//	EXECUTABLE_NAME='app'
//	DIRECTORY='src'
//	FILE='main.c'
//	FLAGS='-lm -pthread'
//
// A line starting with three double (or three single) quotes opens or closes
// a block comment.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const DefaultExecutableName = "my_exe"

const (
	keyExecutableName = "EXECUTABLE_NAME"
	keyDirectory      = "DIRECTORY"
	keyFile           = "FILE"
	keyFlags          = "FLAGS"
	keyCflags         = "CFLAGS"
	keyExclude        = "EXCLUDE"
)

var (
	errNotAssignment = errors.New("expected KEY='value'")
	errUnquoted      = errors.New("value must be single-quoted")
	errEmptyName     = errors.New("executable name is empty")
)

// Manifest is the typed content of a manifest file
type Manifest struct {
	ExecutableName string
	Directories    []string
	Files          []string // paths or doublestar globs
	Excludes       []string // doublestar patterns matched against discovered files
	Flags          []string // extra link arguments
	Cflags         []string // extra compile and dependency-listing arguments
}

// Error is a manifest problem, tied to a line when there is one
type Error struct {
	Path    string
	Line    int
	Content string
	Err     error
}

func (e *Error) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("manifest %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("manifest %s:%d: %v\n\t%s", e.Path, e.Line, e.Err, e.Content)
}

func (e *Error) Unwrap() error { return e.Err }

// Parse reads a manifest. Values may contain {{ expr }} segments which are
// evaluated against env.
func Parse(rdr io.Reader, env Env) (*Manifest, error) {
	m := &Manifest{ExecutableName: DefaultExecutableName}

	sc := bufio.NewScanner(rdr)
	inComment := false
	lineno := 0
	for sc.Scan() {
		lineno++
		raw := sc.Text()
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, `"""`) || strings.HasPrefix(line, `'''`) {
			inComment = !inComment
			continue
		}
		if inComment || line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := m.apply(line, env); err != nil {
			return nil, &Error{Line: lineno, Content: raw, Err: err}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &Error{Err: err}
	}

	if m.ExecutableName == "" {
		return nil, &Error{Err: errEmptyName}
	}
	return m, nil
}

// ParseFile parses the manifest at path
func ParseFile(path string, env Env) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	defer f.Close()

	m, err := Parse(bufio.NewReader(f), env)
	if err != nil {
		var merr *Error
		if errors.As(err, &merr) {
			merr.Path = path
		}
		return nil, err
	}
	return m, nil
}

func (m *Manifest) apply(line string, env Env) error {
	key, rawValue, ok := strings.Cut(line, "=")
	if !ok {
		return errNotAssignment
	}
	key = strings.TrimSpace(key)

	value, err := unquote(strings.TrimSpace(rawValue))
	if err != nil {
		return err
	}
	value, err = evaluateString(value, env)
	if err != nil {
		return err
	}

	switch key {
	case keyExecutableName:
		m.ExecutableName = value
	case keyDirectory:
		m.Directories = append(m.Directories, value)
	case keyFile:
		m.Files = append(m.Files, value)
	case keyExclude:
		m.Excludes = append(m.Excludes, value)
	case keyFlags, keyCflags:
		args, err := SplitFlags(value)
		if err != nil {
			return err
		}
		if key == keyFlags {
			m.Flags = append(m.Flags, args...)
		} else {
			m.Cflags = append(m.Cflags, args...)
		}
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

// unquote strips the outer single quotes; the value spans from the first
// quote to the last one so quotes inside the value survive
func unquote(s string) (string, error) {
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return "", errUnquoted
	}
	return s[1 : len(s)-1], nil
}
