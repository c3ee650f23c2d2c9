// Package logger provides the structured logger shared by every component of
// the portal service. It is a thin layer over logrus so call sites can attach
// fields and errors without importing logrus directly.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	Level      string
	Format     string // "text" or "json"
	Output     string // "stdout", "stderr" or "file"
	FilePrefix string
}

// Logger wraps a logrus entry scoped to a component.
type Logger struct {
	*logrus.Entry
}

// New builds a logger from the provided configuration. Invalid levels fall
// back to info; a file output that cannot be opened falls back to stdout.
func New(cfg LoggingConfig) *Logger {
	base := logrus.New()

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	base.SetOutput(resolveOutput(cfg))
	return &Logger{Entry: logrus.NewEntry(base)}
}

// NewDefault returns an info-level text logger tagged with the component name.
func NewDefault(component string) *Logger {
	log := New(LoggingConfig{Level: "info", Format: "text", Output: "stdout"})
	if component == "" {
		return log
	}
	return log.WithComponent(component)
}

// NewDiscard returns a logger that drops everything. Useful in tests.
func NewDiscard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{Entry: logrus.NewEntry(base)}
}

// WithComponent returns a child logger carrying the component field.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Entry: l.Entry.WithField("component", component)}
}

// WithField returns a child logger with an extra field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithFields returns a child logger with extra fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithFields(logrus.Fields(fields))}
}

// WithError returns a child logger carrying err.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}

func resolveOutput(cfg LoggingConfig) io.Writer {
	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "stderr":
		return os.Stderr
	case "file":
		prefix := cfg.FilePrefix
		if prefix == "" {
			prefix = "portal"
		}
		name := filepath.Clean(prefix + "-" + time.Now().UTC().Format("20060102") + ".log")
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return os.Stdout
		}
		return f
	default:
		return os.Stdout
	}
}
