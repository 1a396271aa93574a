// Package logger is the levelled logger shared by the mirror's packages.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a log severity.
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
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// levelLogger writes timestamped lines at or above its level.
type levelLogger struct {
	mu    sync.Mutex
	level Level
	out   io.Writer
	file  *os.File
	now   func() time.Time
}

func newLogger(w io.Writer, level Level) *levelLogger {
	return &levelLogger{level: level, out: w, now: time.Now}
}

var std = newLogger(os.Stderr, LevelInfo)

// SetLevel sets the minimum level of the default logger.
func SetLevel(level Level) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.level = level
}

// SetOutput redirects the default logger, mostly for tests.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.out = w
}

// SetLogFile tees the default logger's output into the file at path.
func SetLogFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	std.mu.Lock()
	defer std.mu.Unlock()
	if std.file != nil {
		std.file.Close()
	}
	std.file = f
	return nil
}

// Close releases the log file, if any.
func Close() {
	std.mu.Lock()
	defer std.mu.Unlock()
	if std.file != nil {
		std.file.Close()
		std.file = nil
	}
}

func (l *levelLogger) logf(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	line := fmt.Sprintf("%s %s %s\n",
		l.now().UTC().Format("2006-01-02T15:04:05.000Z"), level, fmt.Sprintf(format, args...))
	io.WriteString(l.out, line)
	if l.file != nil {
		io.WriteString(l.file, line)
	}
}

// Debug logs through the default logger.
func Debug(format string, args ...interface{}) { std.logf(LevelDebug, format, args...) }

// Info logs through the default logger.
func Info(format string, args ...interface{}) { std.logf(LevelInfo, format, args...) }

// Warn logs through the default logger.
func Warn(format string, args ...interface{}) { std.logf(LevelWarn, format, args...) }

// Error logs through the default logger.
func Error(format string, args ...interface{}) { std.logf(LevelError, format, args...) }

// ParseLevel accepts debug, info, warn (or warning) and error, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q: valid levels are debug, info, warn, error", s)
	}
}
