package toolchain

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
)

// Output is what a finished tool invocation left behind
type Output struct {
	Stdout string
	Stderr string
}

// Diagnostics returns the text a compiler wants the user to see
func (o Output) Diagnostics() string {
	return strings.TrimRight(o.Stderr+o.Stdout, "\n")
}

// Runner invokes an external tool synchronously in dir. A non-zero exit is
// reported as an error together with the collected output.
type Runner interface {
	Run(dir, name string, args ...string) (Output, error)
}

// ExecRunner runs tools as child processes
type ExecRunner struct{}

func (ExecRunner) Run(dir, name string, args ...string) (Output, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return Output{Stdout: stdout.String(), Stderr: stderr.String()}, err
}

// ExitCode extracts the exit status from a Runner error, -1 if the tool
// never ran
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// CommandLine renders an invocation the way it is echoed to the user
func CommandLine(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
