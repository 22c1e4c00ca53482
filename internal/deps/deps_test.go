package deps

import (
	"errors"
	"testing"

	"github.com/qobs-build/bearmake/internal/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	out  toolchain.Output
	err  error
	args []string
}

func (r *stubRunner) Run(dir, name string, args ...string) (toolchain.Output, error) {
	r.args = append([]string{name}, args...)
	return r.out, r.err
}

func TestParseRule(t *testing.T) {
	prereqs, err := ParseRule("main.o: main.c util.h \\\n  include/config.h\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.c", "util.h", "include/config.h"}, prereqs)
}

func TestParseRuleEscapedSpaces(t *testing.T) {
	prereqs, err := ParseRule("a.o: a.c my\\ headers/a.h\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.c", "my headers/a.h"}, prereqs)
}

func TestParseRuleWithoutSpaceAfterColon(t *testing.T) {
	prereqs, err := ParseRule("a.o:a.c b.h")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.c", "b.h"}, prereqs)
}

func TestParseRuleRejectsGarbage(t *testing.T) {
	_, err := ParseRule("")
	assert.Error(t, err)

	_, err = ParseRule("main.o main.c util.h\n")
	assert.Error(t, err)
}

func TestExtractNormalizesAndDropsSource(t *testing.T) {
	r := &stubRunner{out: toolchain.Output{Stdout: "main.o: ./main.c src/../util.h util.h \\\n /usr/local/include/x.h\n"}}
	e := &Extractor{Runner: r, Dir: "/work"}

	headers := e.Extract("gcc", []string{"-Iinclude"}, "main.c")

	assert.Equal(t, []string{"gcc", "-MM", "-Iinclude", "main.c"}, r.args)
	assert.Equal(t, []string{"util.h", "/usr/local/include/x.h"}, headers)
}

func TestExtractDegradesOnFailure(t *testing.T) {
	var failed []string
	r := &stubRunner{
		out: toolchain.Output{Stderr: "main.c:1:10: fatal error: nope.h: No such file or directory"},
		err: errors.New("exit status 1"),
	}
	e := &Extractor{Runner: r, Dir: "/work", OnFailure: func(src string, err error) {
		failed = append(failed, src)
		assert.ErrorContains(t, err, "nope.h")
	}}

	assert.Empty(t, e.Extract("gcc", nil, "main.c"))
	assert.Equal(t, []string{"main.c"}, failed)
}

func TestExtractDegradesOnUnparseableOutput(t *testing.T) {
	var failed int
	e := &Extractor{
		Runner:    &stubRunner{out: toolchain.Output{Stdout: "   \n"}},
		OnFailure: func(string, error) { failed++ },
	}

	assert.Nil(t, e.Extract("gcc", nil, "main.c"))
	assert.Equal(t, 1, failed)
}
