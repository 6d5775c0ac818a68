package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sydlexius/liner/internal/config"
)

// Config describes the desired logging output.
type Config struct {
	Level          string
	Format         string
	FilePath       string
	FileMaxSizeMB  int
	FileMaxFiles   int
	FileMaxAgeDays int
}

// FromSettings converts the logging section of the application config.
func FromSettings(c config.LoggingConfig) Config {
	return Config{
		Level:          c.Level,
		Format:         c.Format,
		FilePath:       c.FilePath,
		FileMaxSizeMB:  c.FileMaxSizeMB,
		FileMaxFiles:   c.FileMaxFiles,
		FileMaxAgeDays: c.FileMaxAgeDays,
	}
}

// outputChanged reports whether switching from c to next requires a new handler.
func (c Config) outputChanged(next Config) bool {
	return c.Format != next.Format ||
		c.FilePath != next.FilePath ||
		c.FileMaxSizeMB != next.FileMaxSizeMB ||
		c.FileMaxFiles != next.FileMaxFiles ||
		c.FileMaxAgeDays != next.FileMaxAgeDays
}

// swapHandler delegates to an inner slog.Handler that can be replaced while
// loggers derived from it stay valid.
type swapHandler struct {
	inner atomic.Pointer[slog.Handler]
}

func newSwapHandler(h slog.Handler) *swapHandler {
	s := &swapHandler{}
	s.inner.Store(&h)
	return s
}

func (s *swapHandler) swap(h slog.Handler) { s.inner.Store(&h) }

func (s *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return (*s.inner.Load()).Enabled(ctx, level)
}

func (s *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return (*s.inner.Load()).Handle(ctx, r)
}

func (s *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return newSwapHandler((*s.inner.Load()).WithAttrs(attrs))
}

func (s *swapHandler) WithGroup(name string) slog.Handler {
	return newSwapHandler((*s.inner.Load()).WithGroup(name))
}

// Manager owns the process logger and applies configuration changes at runtime.
type Manager struct {
	mu      sync.Mutex
	level   *slog.LevelVar
	handler *swapHandler
	current Config
	file    io.Closer
}

// NewManager builds the root logger for cfg.
func NewManager(cfg Config) (*Manager, *slog.Logger) {
	m := &Manager{level: &slog.LevelVar{}, current: cfg}
	m.level.Set(ParseLevel(cfg.Level))

	w, closer := openWriter(cfg)
	m.file = closer
	m.handler = newSwapHandler(newHandler(w, m.level, cfg.Format))

	return m, slog.New(m.handler)
}

// Reconfigure applies cfg. The level changes in place; format and file
// changes rebuild the handler. It reports whether anything changed.
func (m *Manager) Reconfigure(cfg Config) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cfg == m.current {
		return false
	}
	m.level.Set(ParseLevel(cfg.Level))

	if m.current.outputChanged(cfg) {
		if m.file != nil {
			_ = m.file.Close()
			m.file = nil
		}
		w, closer := openWriter(cfg)
		m.file = closer
		m.handler.swap(newHandler(w, m.level, cfg.Format))
	}
	m.current = cfg
	return true
}

// Current returns the active configuration.
func (m *Manager) Current() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Close releases the log file, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}

// ParseLevel maps a level name to slog.Level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openWriter returns stdout, or stdout tee'd into a rotating file.
func openWriter(cfg Config) (io.Writer, io.Closer) {
	if cfg.FilePath == "" {
		return os.Stdout, nil
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    positiveOr(cfg.FileMaxSizeMB, 100),
		MaxBackups: positiveOr(cfg.FileMaxFiles, 3),
		MaxAge:     positiveOr(cfg.FileMaxAgeDays, 30),
	}
	return io.MultiWriter(os.Stdout, lj), lj
}

func newHandler(w io.Writer, leveler slog.Leveler, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: leveler}
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
