// Package logger provides the leveled logger used throughout TalkyTime.
// Three levels exist: off (silent), normal (info/warn/error) and verbose
// (adds debug). A Logger is safe for concurrent use.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level controls the verbosity of the logger.
type Level int

const (
	// LevelOff disables all log output.
	LevelOff Level = iota
	// LevelNormal enables info, warn, and error output.
	LevelNormal
	// LevelVerbose enables all output including debug.
	LevelVerbose
)

// String returns the flag spelling of the level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelVerbose:
		return "verbose"
	default:
		return "normal"
	}
}

// ParseLevel maps "off", "normal" and "verbose" (plus the aliases "quiet",
// "info" and "debug") to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "quiet", "none":
		return LevelOff, nil
	case "", "normal", "info":
		return LevelNormal, nil
	case "verbose", "debug":
		return LevelVerbose, nil
	}
	return LevelNormal, fmt.Errorf("unknown log level %q", s)
}

// Logger is a leveled logger. All methods are safe for concurrent use.
type Logger struct {
	mu     sync.RWMutex
	level  Level
	out    io.Writer
	debug  *log.Logger
	info   *log.Logger
	warn   *log.Logger
	errLog *log.Logger
}

// New creates a logger with the given level, writing to out.
// If out is nil, os.Stderr is used.
func New(level Level, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}

	flags := log.Ltime | log.Lmicroseconds | log.Lmsgprefix

	return &Logger{
		level:  level,
		out:    out,
		debug:  log.New(out, "[DBG] ", flags),
		info:   log.New(out, "[INF] ", flags),
		warn:   log.New(out, "[WRN] ", flags),
		errLog: log.New(out, "[ERR] ", flags),
	}
}

// OpenOutput resolves a -log-file flag value to a writer. "stderr" (or an
// empty path) selects the console; anything else is opened for appending,
// creating parent directories as needed. The returned close func is never nil.
func OpenOutput(path string) (io.Writer, func() error, error) {
	noop := func() error { return nil }
	if path == "" || path == "stderr" {
		return os.Stderr, noop, nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return os.Stderr, noop, fmt.Errorf("creating log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stderr, noop, fmt.Errorf("opening log file: %w", err)
	}
	return f, f.Close, nil
}

// Writer returns the destination this logger writes to.
func (l *Logger) Writer() io.Writer { return l.out }

// SetLevel changes the log level at runtime.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *Logger) emit(min Level, dst *log.Logger, format string, args []any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.level >= min {
		dst.Output(3, fmt.Sprintf(format, args...))
	}
}

// Debug logs at debug level (verbose only).
func (l *Logger) Debug(format string, args ...any) {
	l.emit(LevelVerbose, l.debug, format, args)
}

// Info logs at info level.
func (l *Logger) Info(format string, args ...any) {
	l.emit(LevelNormal, l.info, format, args)
}

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...any) {
	l.emit(LevelNormal, l.warn, format, args)
}

// Error logs at error level.
func (l *Logger) Error(format string, args ...any) {
	l.emit(LevelNormal, l.errLog, format, args)
}
