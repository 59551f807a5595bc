// Package badgerlog provides a leveled logger on top of the standard log
// package. It satisfies badger's Logger interface, so the history database
// logs through the same writer as the rest of fundboard.
package badgerlog

import (
	"fmt"
	"log"
	"strings"
)

type Level uint8

const (
	NoLogging Level = iota
	ErrorLevel
	WarningLevel
	InfoLevel
	DebugLevel
)

var levelNames = map[string]Level{
	"none":    NoLogging,
	"off":     NoLogging,
	"error":   ErrorLevel,
	"warn":    WarningLevel,
	"warning": WarningLevel,
	"info":    InfoLevel,
	"debug":   DebugLevel,
}

// ParseLevel parses a level name such as "warn" or "debug".
func ParseLevel(s string) (Level, error) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return NoLogging, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

func (l Level) String() string {
	switch l {
	case NoLogging:
		return "none"
	case ErrorLevel:
		return "error"
	case WarningLevel:
		return "warn"
	case InfoLevel:
		return "info"
	case DebugLevel:
		return "debug"
	default:
		return fmt.Sprintf("Level(%d)", l)
	}
}

type Logger struct {
	*log.Logger
	level  Level
	prefix string
}

// NewDefaultLogger logs warnings and errors into the standard logger.
func NewDefaultLogger() *Logger {
	return NewLogger(log.Default(), WarningLevel)
}

func NewLogger(log *log.Logger, level Level) *Logger {
	return &Logger{
		Logger: log,
		level:  level,
		prefix: "badger",
	}
}

// WithPrefix returns a copy of the logger that prefixes lines with the given
// component name instead of "badger".
func (l *Logger) WithPrefix(prefix string) *Logger {
	cpy := *l
	cpy.prefix = prefix
	return &cpy
}

// Level returns the logger's level.
func (l *Logger) Level() Level { return l.level }

// Enabled returns true if messages at the given level are printed.
func (l *Logger) Enabled(level Level) bool { return level != NoLogging && l.level >= level }

func (l *Logger) logf(level Level, tag, format string, args ...interface{}) {
	if l.Enabled(level) {
		l.Printf(l.prefix+": "+tag+": "+strings.TrimRight(format, "\n"), args...)
	}
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(ErrorLevel, "error", format, args...)
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	l.logf(WarningLevel, "warning", format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(InfoLevel, "info", format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(DebugLevel, "debug", format, args...)
}
