// Package logger provides a simple logging interface for oltstat components.
// It allows packages to log debug, info, warn, and error messages without
// being coupled to a specific logging implementation.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"unicode/utf8"
)

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// streamLogger writes to a stream, normally stderr. Debug and Info lines
// are only written in verbose mode; stdout stays reserved for the value the
// monitoring agent reads.
type streamLogger struct {
	prefix  string
	verbose bool
	out     *log.Logger
}

// NewWriter creates a logger writing to w. verbose enables Debug and Info.
// The prefix is prepended to all messages (e.g., "[lock]" or "[cache]").
func NewWriter(w io.Writer, prefix string, verbose bool) Logger {
	return &streamLogger{
		prefix:  prefix,
		verbose: verbose,
		out:     log.New(w, "", 0),
	}
}

func (l *streamLogger) line(format string) string {
	if l.prefix == "" {
		return format
	}
	return l.prefix + " " + format
}

func (l *streamLogger) Debug(format string, args ...interface{}) {
	if l.verbose {
		l.out.Printf(l.line(format), args...)
	}
}

func (l *streamLogger) Info(format string, args ...interface{}) {
	if l.verbose {
		l.out.Printf(l.line(format), args...)
	}
}

func (l *streamLogger) Warn(format string, args ...interface{}) {
	l.out.Printf(l.line("WARN: "+format), args...)
}

func (l *streamLogger) Error(format string, args ...interface{}) {
	l.out.Printf(l.line("ERROR: "+format), args...)
}

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing.
// Safe for concurrent use so collector tests can share one across goroutines.
type BufferLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{
		Messages: make([]LogMessage, 0),
	}
}

func (l *BufferLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.add("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.add("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.add("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.add("error", format, args...) }

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.Messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Contains returns true if any captured message contains substr.
func (l *BufferLogger) Contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.Messages {
		if strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

// Text joins every captured message, one per line.
func (l *BufferLogger) Text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	for _, m := range l.Messages {
		b.WriteString(m.Message)
		b.WriteByte('\n')
	}
	return b.String()
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = l.Messages[:0]
}

// Preview renders device output for a single log line: it keeps at most max
// bytes (marking the cut with "..."), and replaces newlines, tabs, escape
// bytes and other control characters so a transcript can't forge extra log
// lines or repaint the terminal.
func Preview(s string, max int) string {
	truncated := false
	if max > 0 && len(s) > max {
		// cut on a rune boundary
		for max > 0 && !utf8.RuneStart(s[max]) {
			max--
		}
		s = s[:max]
		truncated = true
	}

	var b strings.Builder
	b.Grow(len(s) + 3)
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t' || r == '\f':
			b.WriteRune(' ')
		case r == utf8.RuneError:
			b.WriteRune('.')
		case r == 0x200B || r == 0x200C || r == 0x200D || r == 0xFEFF:
			// zero-width characters are dropped
		case r == 0x202E:
			b.WriteRune(' ')
		case r < 32 || r == 127:
			b.WriteRune('.')
		default:
			b.WriteRune(r)
		}
	}
	if truncated {
		b.WriteString("...")
	}
	return b.String()
}
