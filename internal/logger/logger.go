// Package logger provides a small leveled logging interface for viewcycle
// components. Packages log through Logger so tests can swap in a
// BufferLogger and the CLI can turn debug output on with --verbose.
package logger

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

// DebugEnv enables debug output when set to any non-empty value.
const DebugEnv = "VIEWCYCLE_DEBUG"

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

var forceDebug atomic.Bool

// SetDebug forces debug output on regardless of VIEWCYCLE_DEBUG.
func SetDebug(on bool) {
	forceDebug.Store(on)
}

func debugEnabled() bool {
	return forceDebug.Load() || os.Getenv(DebugEnv) != ""
}

// envLogger implements Logger on top of the standard log package.
type envLogger struct {
	prefix string
}

// NewEnvLogger creates a logger that respects VIEWCYCLE_DEBUG.
// The prefix is prepended to all log messages (e.g., "[host]").
func NewEnvLogger(prefix string) Logger {
	return &envLogger{prefix: prefix}
}

func (l *envLogger) Debug(format string, args ...any) {
	if debugEnabled() {
		log.Printf(l.prefix+" "+format, args...)
	}
}

func (l *envLogger) Info(format string, args ...any) {
	log.Printf(l.prefix+" "+format, args...)
}

func (l *envLogger) Warn(format string, args ...any) {
	log.Printf(l.prefix+" WARN: "+format, args...)
}

func (l *envLogger) Error(format string, args ...any) {
	log.Printf(l.prefix+" ERROR: "+format, args...)
}

type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(format string, args ...any) {}
func (noopLogger) Info(format string, args ...any)  {}
func (noopLogger) Warn(format string, args ...any)  {}
func (noopLogger) Error(format string, args ...any) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for test assertions.
type BufferLogger struct {
	Messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{Messages: make([]LogMessage, 0)}
}

func (l *BufferLogger) add(level, format string, args ...any) {
	l.Messages = append(l.Messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...any) { l.add("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...any)  { l.add("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...any)  { l.add("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...any) { l.add("error", format, args...) }

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	return l.Count(level) > 0
}

// Count returns how many messages were logged at the given level.
func (l *BufferLogger) Count(level string) int {
	n := 0
	for _, m := range l.Messages {
		if m.Level == level {
			n++
		}
	}
	return n
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.Messages = l.Messages[:0]
}

var defaultLogger = NewEnvLogger("[viewcycle]")

// Default returns the package-level default logger.
func Default() Logger {
	return defaultLogger
}

// SetDefault replaces the default logger.
func SetDefault(l Logger) {
	if l == nil {
		l = NewEnvLogger("[viewcycle]")
	}
	defaultLogger = l
}
