package dockbar

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"io/fs"

	"github.com/opd-ai/go-dockbar/internal/config"
	"github.com/opd-ai/go-dockbar/internal/metrics"
)

// Format names a configuration syntax for NewFromReader.
type Format = config.Format

// Configuration formats.
const (
	// FormatLua is a Lua script assigning bar.config and bar.widgets.
	FormatLua = config.FormatLua
	// FormatYAML is a YAML document with bar and widgets keys.
	FormatYAML = config.FormatYAML
)

// Metrics collects the instance's Prometheus metrics.
// Use Handler to serve them and Snapshot for a point-in-time copy.
type Metrics = metrics.Metrics

// MetricsSnapshot is a point-in-time copy of an instance's metrics.
type MetricsSnapshot = metrics.Snapshot

// NewMetrics creates a metrics collector with its own registry.
func NewMetrics() *Metrics {
	return metrics.New()
}

// Dockbar is an embeddable status bar with full lifecycle control.
// It is safe for concurrent use from multiple goroutines.
type Dockbar interface {
	// Start connects to the display, docks the bar and starts every
	// widget. It returns once the bar is on screen; widgets and painting
	// run in background goroutines.
	// Returns an error if already running or if initialization fails.
	Start() error

	// Stop shuts the bar down and waits for its goroutines.
	// Safe to call multiple times; subsequent calls are no-ops.
	Stop() error

	// Restart stops the bar, reloads the configuration from its source
	// and starts again. If the configuration cannot be loaded the
	// instance stays stopped.
	Restart() error

	// ReloadConfig loads and validates the configuration, then replaces
	// the running bar with one built from it. On error the running bar is
	// left untouched.
	ReloadConfig() error

	// Run starts the bar and blocks until ctx is done or the bar stops on
	// its own, because its window was destroyed or the display failed.
	// Restarts and reloads in the meantime do not end Run. It returns nil
	// on orderly shutdown.
	Run(ctx context.Context) error

	// IsRunning returns true if the bar is currently running.
	IsRunning() bool

	// Status returns detailed status information about the instance.
	Status() Status

	// SetErrorHandler registers a callback for runtime errors.
	// The handler is invoked asynchronously; panics in it are recovered.
	SetErrorHandler(handler ErrorHandler)

	// SetEventHandler registers a callback for lifecycle events.
	SetEventHandler(handler EventHandler)

	// Health returns a health check result for the instance.
	Health() HealthCheck

	// Metrics returns the metrics collector for this instance.
	Metrics() *Metrics

	// Snapshot returns the last frame painted by the current or last
	// session. It returns ErrNoFrame if nothing was painted yet.
	Snapshot() (*image.RGBA, error)
}

// New creates a Dockbar from a Lua or YAML configuration file on disk.
// The instance is created but not started; call Start or Run.
//
// Example:
//
//	b, err := dockbar.New("/home/user/.config/dockbar/bar.lua", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := b.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
func New(configPath string, opts *Options) (Dockbar, error) {
	load := func() (*config.Config, error) {
		return withParser(func(p *config.Parser) (*config.Config, error) {
			return p.ParseFile(configPath)
		})
	}
	d, err := newDockbar(configPath, load, opts)
	if err != nil {
		return nil, err
	}
	d.configPath = configPath
	return d, nil
}

// NewFromFS creates a Dockbar using a configuration from fsys, such as an
// embed.FS bundled with the application.
func NewFromFS(fsys fs.FS, configPath string, opts *Options) (Dockbar, error) {
	load := func() (*config.Config, error) {
		return withParser(func(p *config.Parser) (*config.Config, error) {
			return p.ParseFromFS(fsys, configPath)
		})
	}
	return newDockbar("embedded:"+configPath, load, opts)
}

// NewFromReader creates a Dockbar from configuration content in the given
// format. The content is read once and kept for restarts.
func NewFromReader(r io.Reader, format Format, opts *Options) (Dockbar, error) {
	if format != FormatLua && format != FormatYAML {
		return nil, fmt.Errorf("invalid format: %s (expected '%s' or '%s')", format, FormatLua, FormatYAML)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	load := func() (*config.Config, error) {
		return withParser(func(p *config.Parser) (*config.Config, error) {
			return p.ParseReader(bytes.NewReader(content), format)
		})
	}
	return newDockbar("reader", load, opts)
}

func withParser(parse func(*config.Parser) (*config.Config, error)) (*config.Config, error) {
	p, err := config.NewParser()
	if err != nil {
		return nil, fmt.Errorf("parser init: %w", err)
	}
	defer p.Close()
	return parse(p)
}

// newDockbar loads the configuration once so that constructors fail early
// on a broken file.
func newDockbar(source string, load func() (*config.Config, error), opts *Options) (*dockbarImpl, error) {
	if opts == nil {
		defaultOpts := DefaultOptions()
		opts = &defaultOpts
	}
	cfg, err := load()
	if err != nil {
		return nil, NewCategorizedError(fmt.Errorf("parse config: %w", err), ErrorCategoryConfig, SeverityCritical)
	}
	return newImpl(cfg, source, load, *opts), nil
}
