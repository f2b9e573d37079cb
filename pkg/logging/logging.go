// Package logging provides named, leveled loggers that write through the
// standard library log package.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Level orders log severities. Higher is more verbose.
type Level int32

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return fmt.Sprintf("Level(%d)", int32(l))
	}
}

// ParseLevel converts a level name such as "info" or "warning" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", s)
	}
}

var (
	level  atomic.Int32
	mu     sync.Mutex
	output io.Writer = os.Stderr
)

func init() {
	level.Store(int32(LevelInfo))
}

// SetLevel sets the level of every logger.
func SetLevel(l Level) {
	level.Store(int32(l))
}

// CurrentLevel returns the process-wide level.
func CurrentLevel() Level {
	return Level(level.Load())
}

// SetOutput redirects loggers created afterwards to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Logger writes "LEVEL | name | message" lines.
type Logger struct {
	name   string
	logger *log.Logger
}

// New creates a logger for the named component.
func New(name string) *Logger {
	mu.Lock()
	w := output
	mu.Unlock()
	return &Logger{
		name:   name,
		logger: log.New(w, "", log.Ldate|log.Ltime),
	}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.logf(LevelDebug, format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.logf(LevelInfo, format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.logf(LevelWarn, format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.logf(LevelError, format, args...)
}

// Fatalf logs at error level and exits. It lets a Logger stand in for the
// storage engine's logger.
func (l *Logger) Fatalf(format string, args ...any) {
	l.logf(LevelError, format, args...)
	os.Exit(1)
}

func (l *Logger) logf(lvl Level, format string, args ...any) {
	if l == nil || lvl > CurrentLevel() {
		return
	}
	l.logger.Printf("%-5s | %-10s | %s", lvl, l.name, fmt.Sprintf(format, args...))
}
