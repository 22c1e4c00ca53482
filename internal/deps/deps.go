// Package deps asks the compiler which headers a source file includes.
package deps

import (
	"errors"
	"fmt"
	"strings"

	"github.com/qobs-build/bearmake/internal/hashstore"
	"github.com/qobs-build/bearmake/internal/toolchain"
)

var errNoRule = errors.New("no `target:` rule in dependency output")

// Extractor runs the compiler in its dependency-listing mode (-MM).
// Failures are never fatal: the source is treated as having no known
// header dependencies and OnFailure is told about it.
type Extractor struct {
	Runner    toolchain.Runner
	Dir       string // working directory, also the root for key normalization
	OnFailure func(src string, err error)
}

// Extract returns the canonical paths of the headers the compiler reports
// for src, in reported order and without duplicates
func (e *Extractor) Extract(compiler string, cflags []string, src string) []string {
	args := make([]string, 0, len(cflags)+2)
	args = append(args, "-MM")
	args = append(args, cflags...)
	args = append(args, src)

	out, err := e.Runner.Run(e.Dir, compiler, args...)
	if err != nil {
		e.fail(src, fmt.Errorf("%s: %w: %s", toolchain.CommandLine(compiler, args), err, out.Diagnostics()))
		return nil
	}

	prereqs, err := ParseRule(out.Stdout)
	if err != nil {
		e.fail(src, err)
		return nil
	}

	self := hashstore.CanonicalPath(e.Dir, src)
	seen := map[string]bool{self: true}
	var headers []string
	for _, p := range prereqs {
		key := hashstore.CanonicalPath(e.Dir, p)
		if seen[key] {
			continue
		}
		seen[key] = true
		headers = append(headers, key)
	}
	return headers
}

func (e *Extractor) fail(src string, err error) {
	if e.OnFailure != nil {
		e.OnFailure(src, err)
	}
}

// ParseRule parses make-style output such as
//
//	main.o: main.c util.h \
//	  include/config.h
//
// and returns the prerequisites. Escaped spaces (`\ `) stay inside a path.
func ParseRule(out string) ([]string, error) {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\\\n", " ")

	tokens := splitEscaped(out)
	for i, tok := range tokens {
		if strings.HasSuffix(tok, ":") {
			return tokens[i+1:], nil
		}
		// `main.o:main.c` with no separating space
		if j := strings.Index(tok, ":"); j > 0 && !isDriveLetter(tok, j) {
			rest := tokens[i+1:]
			if tok[j+1:] != "" {
				rest = append([]string{tok[j+1:]}, rest...)
			}
			return rest, nil
		}
	}
	return nil, errNoRule
}

// splitEscaped splits on whitespace, keeping `\ ` as a literal space
func splitEscaped(s string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && s[i+1] == ' ':
			cur.WriteByte(' ')
			i++
		case c == ' ' || c == '\t' || c == '\n':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return tokens
}

// C:\foo.h style tokens are paths, not rule heads
func isDriveLetter(tok string, colon int) bool {
	return colon == 1 && len(tok) > 2 && (tok[2] == '\\' || tok[2] == '/')
}
