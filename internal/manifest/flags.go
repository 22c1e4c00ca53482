package manifest

import (
	"errors"
	"fmt"

	"github.com/mattn/go-shellwords"
)

var (
	errUnterminatedQuote = errors.New("unterminated quote in flags")
	errShellOperator     = errors.New("shell operators are not allowed in flags")
)

// SplitFlags tokenizes a flag string the way a POSIX shell would split
// words. Environment variables and backticks are left alone, and ; & | < >
// outside quotes are rejected.
func SplitFlags(s string) ([]string, error) {
	p := shellwords.NewParser()
	p.ParseEnv = false
	p.ParseBacktick = false

	args, err := p.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnterminatedQuote, err)
	}
	if p.Position >= 0 {
		return nil, errShellOperator
	}
	return args, nil
}
