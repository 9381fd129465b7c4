// Package widget implements the producers shown on the bar: a clock, the
// active window title, a desktop pager, shell command output, the first
// line of a file and static text.
//
// Every widget implements bar.Producer. Widgets that hold resources (X
// connections, file watchers) also implement io.Closer; their owner closes
// them once the scheduler has stopped.
package widget

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/opd-ai/go-dockbar/internal/bar"
	"github.com/opd-ai/go-dockbar/internal/config"
)

// Env carries what widgets need from their surroundings.
type Env struct {
	// Logger receives widget diagnostics. Nil discards them.
	Logger *slog.Logger
	// Display is the X display the title and pager widgets connect to;
	// empty means $DISPLAY.
	Display string
	// Dial opens the desktop state source for title and pager widgets.
	// Nil means DialX11.
	Dial func(display string, logger *slog.Logger) (Desktop, error)
	// FileDebounce delays file widget reloads; 0 means DefaultFileDebounce.
	FileDebounce time.Duration
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

func (e Env) dial() (Desktop, error) {
	dial := e.Dial
	if dial == nil {
		dial = func(display string, logger *slog.Logger) (Desktop, error) {
			return DialX11(display, logger)
		}
	}
	return dial(e.Display, e.logger())
}

// Build creates the producer described by cfg.
func Build(cfg config.WidgetConfig, env Env) (bar.Producer, error) {
	logger := env.logger().With("widget", cfg.Name)

	switch cfg.Type {
	case config.WidgetClock:
		return NewClock(cfg.Attributes, cfg.Format, cfg.Interval)
	case config.WidgetCommand:
		return NewCommand(cfg.Attributes, cfg.Command, cfg.Interval, logger), nil
	case config.WidgetFile:
		return NewFile(cfg.Attributes, cfg.Path, env.FileDebounce, logger)
	case config.WidgetText:
		return NewText(cfg.Attributes.Block(cfg.Text)), nil
	case config.WidgetTitle:
		d, err := env.dial()
		if err != nil {
			return nil, fmt.Errorf("title: %w", err)
		}
		return NewTitle(d, cfg.Attributes, cfg.Stretch), nil
	case config.WidgetPager:
		d, err := env.dial()
		if err != nil {
			return nil, fmt.Errorf("pager: %w", err)
		}
		return NewPager(d, PagerStyle{Active: cfg.Active, Inactive: cfg.Inactive, NonEmpty: cfg.NonEmpty}, logger), nil
	default:
		return nil, fmt.Errorf("unknown widget type %q", cfg.Type)
	}
}

// BuildAll creates a producer for every widget, in order. If one fails,
// those already built are closed.
func BuildAll(widgets []config.WidgetConfig, env Env) ([]bar.Producer, error) {
	out := make([]bar.Producer, 0, len(widgets))
	for _, w := range widgets {
		p, err := Build(w, env)
		if err != nil {
			CloseAll(out)
			return nil, fmt.Errorf("widget %s: %w", w.Name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// CloseAll closes every producer that implements io.Closer and returns the
// first error.
func CloseAll(producers []bar.Producer) error {
	var first error
	for _, p := range producers {
		c, ok := p.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, after func(time.Duration) <-chan time.Time, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-after(d):
		return nil
	}
}
