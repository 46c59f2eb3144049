package concurrency

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Logger is the leveled logger used by executors and the logging observer
// This abstraction allows swapping logging implementations
type Logger interface {
	// Errorf logs a formatted error message
	Errorf(format string, args ...interface{})

	// Warnf logs a formatted warning message
	Warnf(format string, args ...interface{})

	// Infof logs a formatted informational message
	Infof(format string, args ...interface{})

	// Debugf logs a formatted debug message
	Debugf(format string, args ...interface{})
}

// Level is a minimum log severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts "debug", "info", "warn" or "error" to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// defaultLogger implements Logger using Go's standard log package
type defaultLogger struct {
	level       Level
	errorLogger *log.Logger
	warnLogger  *log.Logger
	infoLogger  *log.Logger
	debugLogger *log.Logger
}

// NewDefaultLogger creates a logger at info level writing errors and warnings
// to stderr and the rest to stdout
func NewDefaultLogger() Logger {
	return NewLevelLogger(LevelInfo, os.Stdout, os.Stderr)
}

// NewLevelLogger creates a logger that drops messages below level
func NewLevelLogger(level Level, out, errOut io.Writer) Logger {
	return &defaultLogger{
		level:       level,
		errorLogger: log.New(errOut, "[ERROR] ", log.LstdFlags|log.Lshortfile),
		warnLogger:  log.New(errOut, "[WARN] ", log.LstdFlags|log.Lshortfile),
		infoLogger:  log.New(out, "[INFO] ", log.LstdFlags|log.Lshortfile),
		debugLogger: log.New(out, "[DEBUG] ", log.LstdFlags|log.Lshortfile),
	}
}

func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	l.errorLogger.Output(3, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	if l.level > LevelWarn {
		return
	}
	l.warnLogger.Output(3, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Infof(format string, args ...interface{}) {
	if l.level > LevelInfo {
		return
	}
	l.infoLogger.Output(3, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	if l.level > LevelDebug {
		return
	}
	l.debugLogger.Output(3, fmt.Sprintf(format, args...))
}

type nopLogger struct{}

// NopLogger returns a Logger that discards everything
func NopLogger() Logger {
	return nopLogger{}
}

func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Debugf(string, ...interface{}) {}
