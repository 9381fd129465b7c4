package dockbar

import (
	"image"
	"time"
)

// DefaultShutdownTimeout is the default timeout for graceful shutdown.
// This can be overridden via Options.ShutdownTimeout.
const DefaultShutdownTimeout = 5 * time.Second

// Options configures the Dockbar instance behavior.
type Options struct {
	// Preview shows the bar in an ordinary window instead of docking it.
	// Useful for editing configurations under window managers without dock
	// support. Not available in noebiten builds.
	Preview bool

	// Headless runs the bar against an in-memory display: nothing is shown,
	// but widgets, scheduling and painting run as usual.
	Headless bool

	// HeadlessOutput is the output simulated in headless and preview mode.
	// Empty means a 1920x1080 output for headless and 1280x720 for preview.
	HeadlessOutput image.Rectangle

	// ShutdownTimeout sets the maximum time to wait for graceful shutdown.
	// Zero means use DefaultShutdownTimeout (5 seconds).
	ShutdownTimeout time.Duration

	// Logger sets a custom logger for debug/info messages.
	// If nil, no logging is performed.
	Logger Logger

	// Metrics sets the metrics collector. If nil, a new collector is
	// created for the instance.
	Metrics *Metrics

	// ErrorTracker receives every reported error.
	// If nil, a tracker with the default configuration is created.
	ErrorTracker *ErrorTracker

	// WatchConfig reloads the bar when its configuration file changes on
	// disk. Only configurations loaded with New are watched.
	WatchConfig bool

	// WatchDebounce sets the debounce interval for file change events.
	// Zero means use the default (500ms).
	WatchDebounce time.Duration

	// CoalesceWindow overrides the configuration's coalescing window.
	// Zero means use the configuration file's value.
	CoalesceWindow time.Duration

	// MaxPaintRate overrides the configuration's paint rate cap.
	// Zero means use the configuration file's value.
	MaxPaintRate float64
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{}
}

// Logger interface for custom logging.
// It follows the slog-style signature for compatibility with Go's structured logging.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}
