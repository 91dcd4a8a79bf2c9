// Package logging builds the structured logger used by the analyser.  The
// log goes to stderr and, if a file is configured, to a file that is rotated
// by size.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/goblimey/go-ntrip-analyser/config"
)

// Manager owns the log writers.
type Manager struct {
	root   *slog.Logger
	level  *slog.LevelVar
	rotate *lumberjack.Logger
}

// New creates a Manager from the configuration.  Log output goes to stderr
// as well as the file, if there is one.
func New(cfg config.Logging) (*Manager, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with the console output going to w.
func NewWithWriter(cfg config.Logging, w io.Writer) (*Manager, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	m := Manager{level: new(slog.LevelVar)}
	m.level.Set(level)

	writers := []io.Writer{w}
	if cfg.File != "" {
		m.rotate = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writers = append(writers, m.rotate)
	}
	out := io.MultiWriter(writers...)

	opts := &slog.HandlerOptions{Level: m.level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	case "", "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("unsupported log format: %s (must be json or text)", cfg.Format)
	}

	m.root = slog.New(handler)
	return &m, nil
}

// Logger returns a logger that tags each record with the component name.
func (m *Manager) Logger(component string) *slog.Logger {
	return m.root.With("component", component)
}

// SetLevel changes the level of all of the loggers.
func (m *Manager) SetLevel(level slog.Level) {
	m.level.Set(level)
}

// Rotate starts a new log file.  It does nothing if there is no file.
func (m *Manager) Rotate() error {
	if m.rotate == nil {
		return nil
	}
	return m.rotate.Rotate()
}

// Close closes the log file.
func (m *Manager) Close() error {
	if m.rotate == nil {
		return nil
	}
	return m.rotate.Close()
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level: %s", levelStr)
	}
}
