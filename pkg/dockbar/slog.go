package dockbar

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
)

// SlogAdapter wraps a *slog.Logger to implement the Logger interface.
//
// Example:
//
//	opts := dockbar.DefaultOptions()
//	opts.Logger = dockbar.NewSlogAdapter(slog.Default())
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a Logger adapter from a *slog.Logger.
// If logger is nil, slog.Default() is used.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Debug logs a debug-level message with optional key-value pairs.
func (s *SlogAdapter) Debug(msg string, args ...any) {
	s.logger.Debug(msg, args...)
}

// Info logs an info-level message with optional key-value pairs.
func (s *SlogAdapter) Info(msg string, args ...any) {
	s.logger.Info(msg, args...)
}

// Warn logs a warning-level message with optional key-value pairs.
func (s *SlogAdapter) Warn(msg string, args ...any) {
	s.logger.Warn(msg, args...)
}

// Error logs an error-level message with optional key-value pairs.
func (s *SlogAdapter) Error(msg string, args ...any) {
	s.logger.Error(msg, args...)
}

// Slog returns the wrapped *slog.Logger.
func (s *SlogAdapter) Slog() *slog.Logger {
	return s.logger
}

// DefaultLogger returns a Logger that writes text to stderr at Info level.
// For more control, use NewSlogAdapter with a custom slog.Handler.
func DefaultLogger() Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &SlogAdapter{logger: slog.New(handler)}
}

// DebugLogger returns a Logger that writes text to stderr at Debug level,
// including source locations.
func DebugLogger() Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	})
	return &SlogAdapter{logger: slog.New(handler)}
}

// JSONLogger returns a Logger that writes JSON to w at the given level.
// A nil writer means stderr.
func JSONLogger(w io.Writer, level slog.Level) Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return &SlogAdapter{logger: slog.New(handler)}
}

// NopLogger returns a Logger that discards all log messages.
func NopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string, args ...any) {}
func (n *nopLogger) Info(msg string, args ...any)  {}
func (n *nopLogger) Warn(msg string, args ...any)  {}
func (n *nopLogger) Error(msg string, args ...any) {}

// slogOf returns a *slog.Logger writing to l, for the internal packages.
func slogOf(l Logger) *slog.Logger {
	switch l := l.(type) {
	case nil, *nopLogger:
		return slog.New(slog.DiscardHandler)
	case *SlogAdapter:
		return l.logger
	default:
		return slog.New(&loggerHandler{logger: l})
	}
}

// loggerHandler is a slog.Handler forwarding records to a Logger.
// Groups are flattened into dotted keys.
type loggerHandler struct {
	logger Logger
	attrs  []any
	group  string
}

func (h *loggerHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *loggerHandler) Handle(_ context.Context, r slog.Record) error {
	args := slices.Clone(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		args = append(args, h.key(a.Key), a.Value.Resolve().Any())
		return true
	})

	switch {
	case r.Level >= slog.LevelError:
		h.logger.Error(r.Message, args...)
	case r.Level >= slog.LevelWarn:
		h.logger.Warn(r.Message, args...)
	case r.Level >= slog.LevelInfo:
		h.logger.Info(r.Message, args...)
	default:
		h.logger.Debug(r.Message, args...)
	}
	return nil
}

func (h *loggerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	n := *h
	n.attrs = slices.Clip(h.attrs)
	for _, a := range attrs {
		n.attrs = append(n.attrs, h.key(a.Key), a.Value.Resolve().Any())
	}
	return &n
}

func (h *loggerHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	n := *h
	n.group = h.key(name)
	return &n
}

func (h *loggerHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}
