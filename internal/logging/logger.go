package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Filename is the build log inside the build root
const Filename = "bearmake.log"

// Logger appends timestamped lines to <build-root>/bearmake.log. Every line
// carries the id of the run that wrote it so interleaved history stays
// readable after many builds.
type Logger struct {
	file  *os.File
	runID string
}

// New creates (or reuses) the log file in the build root
func New(buildRoot string) (*Logger, error) {
	if err := os.MkdirAll(buildRoot, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure build root: %w", err)
	}
	path := filepath.Join(buildRoot, Filename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{file: f, runID: uuid.NewString()}, nil
}

// RunID identifies the current run
func (l *Logger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Printf writes a single timestamped line to the log file. Multi-line
// messages (compiler output) are indented under the first line.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.file == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	line = strings.TrimRight(line, "\n")
	line = strings.ReplaceAll(line, "\n", "\n\t")
	timestamp := time.Now().Format(time.RFC3339)
	fmt.Fprintf(l.file, "[%s] [%s] %s\n", timestamp, l.runID, line)
}
