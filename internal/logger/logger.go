// Package logger provides leveled logging for github-backup.
// The default level is Info; --quiet lowers output to warnings and errors,
// --debug adds the git command lines and API details.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Level is a logging threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel parses a level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

var (
	mu     sync.RWMutex
	level            = LevelInfo
	output io.Writer = os.Stderr
)

// SetLevel sets the minimum level that is printed.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// GetLevel returns the current level.
func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// IsDebug returns true if debug messages are printed.
func IsDebug() bool {
	return GetLevel() <= LevelDebug
}

// SetOutput sets the output writer.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// logf holds the write lock so concurrent workers never interleave a line.
func logf(l Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if l >= level {
		fmt.Fprintf(output, "["+l.String()+"] "+format+"\n", args...)
	}
}

// Debug prints a message at debug level.
func Debug(format string, args ...any) {
	logf(LevelDebug, format, args...)
}

// Info prints a message at info level.
func Info(format string, args ...any) {
	logf(LevelInfo, format, args...)
}

// Warn prints a message at warn level.
func Warn(format string, args ...any) {
	logf(LevelWarn, format, args...)
}

// Error prints a message at error level.
func Error(format string, args ...any) {
	logf(LevelError, format, args...)
}

// Section prints a section header at info level.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if level <= LevelInfo {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
