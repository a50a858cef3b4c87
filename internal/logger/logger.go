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

// Level represents the logging level
type Level int

const (
	// DEBUG level for detailed debugging information
	DEBUG Level = iota
	// INFO level for informational messages
	INFO
	// WARN level for warning messages
	WARN
	// ERROR level for error messages
	ERROR
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a configured level name to a Level. Unknown names
// default to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Config holds logger configuration
type Config struct {
	Level Level
	// File is an optional log file path written in addition to stderr.
	File string
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{Level: INFO}
}

// Logger writes leveled messages to stderr and optionally to a file.
type Logger struct {
	mu    sync.Mutex
	level Level
	file  *os.File

	debugLog *log.Logger
	infoLog  *log.Logger
	warnLog  *log.Logger
	errorLog *log.Logger
}

// New creates a new logger
func New(config Config) (*Logger, error) {
	l := &Logger{level: config.Level}

	out := io.Writer(os.Stderr)
	if config.File != "" {
		if err := os.MkdirAll(filepath.Dir(config.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(config.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
		out = io.MultiWriter(os.Stderr, file)
	}

	l.debugLog = log.New(out, "[DEBUG] ", log.LstdFlags)
	l.infoLog = log.New(out, "[INFO] ", log.LstdFlags)
	l.warnLog = log.New(out, "[WARN] ", log.LstdFlags)
	l.errorLog = log.New(out, "[ERROR] ", log.LstdFlags)

	return l, nil
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...any) {
	l.logAt(DEBUG, l.debugLog, format, v...)
}

// Info logs an informational message
func (l *Logger) Info(format string, v ...any) {
	l.logAt(INFO, l.infoLog, format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...any) {
	l.logAt(WARN, l.warnLog, format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...any) {
	l.logAt(ERROR, l.errorLog, format, v...)
}

func (l *Logger) logAt(level Level, out *log.Logger, format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.level <= level && out != nil {
		out.Printf(format, v...)
	}
}

// SetLevel changes the minimum logged level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Close releases the optional log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
