package widget

import (
	"context"
	"fmt"
	"time"

	"github.com/arnodel/strftime"

	"github.com/opd-ai/go-dockbar/internal/text"
)

// Clock defaults.
const (
	DefaultClockFormat   = "%a %m-%d-%Y %I:%M %p"
	DefaultClockInterval = time.Minute
)

// Clock shows the local time. Updates are aligned to interval boundaries,
// so a one-minute clock changes exactly when the minute does.
type Clock struct {
	attrs    text.Attributes
	format   string
	interval time.Duration

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	started bool
}

// NewClock creates a clock. An empty format or a zero interval selects the
// defaults. The format is checked once here.
func NewClock(attrs text.Attributes, format string, interval time.Duration) (*Clock, error) {
	if format == "" {
		format = DefaultClockFormat
	}
	if interval <= 0 {
		interval = DefaultClockInterval
	}
	if _, err := strftime.StrictFormat(format, time.Now()); err != nil {
		return nil, fmt.Errorf("clock format %q: %w", format, err)
	}
	return &Clock{
		attrs:    attrs,
		format:   format,
		interval: interval,
		now:      time.Now,
		after:    time.After,
	}, nil
}

// Next implements bar.Producer. The first call returns immediately.
func (c *Clock) Next(ctx context.Context) (text.Block, error) {
	if c.started {
		if err := sleep(ctx, c.after, c.untilBoundary(c.now())); err != nil {
			return nil, err
		}
	}
	c.started = true

	s, err := strftime.StrictFormat(c.format, c.now())
	if err != nil {
		return nil, err
	}
	return c.attrs.Block(s), nil
}

// untilBoundary returns the time from now to the next interval boundary.
func (c *Clock) untilBoundary(now time.Time) time.Duration {
	d := c.interval - now.Sub(now.Truncate(c.interval))
	if d <= 0 {
		d = c.interval
	}
	return d
}
