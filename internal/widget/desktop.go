package widget

import (
	"context"
	"errors"
	"log/slog"

	"github.com/opd-ai/go-dockbar/internal/text"
)

// ErrDesktopClosed is returned once a desktop source has lost its
// connection.
var ErrDesktopClosed = errors.New("desktop connection closed")

// Desktop is the window manager state the title and pager widgets show.
type Desktop interface {
	// Changes receives a value whenever a watched property may have
	// changed. One change is pending as soon as the source is created.
	// The channel is closed when the source closes.
	Changes() <-chan struct{}
	// ActiveTitle returns the title of the focused window.
	ActiveTitle() (string, error)
	// Desktops returns the virtual desktop state.
	Desktops() (DesktopState, error)
	Close() error
}

// DesktopState describes the virtual desktops.
type DesktopState struct {
	// Count is the number of desktops.
	Count int
	// Current is the index of the visible desktop.
	Current int
	// Names holds the desktop names as published; it may be shorter or
	// longer than Count.
	Names []string
	// Occupied marks desktops holding at least one normal window.
	Occupied []bool
}

// waitChange blocks until the desktop reports a change.
func waitChange(ctx context.Context, d Desktop) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-d.Changes():
		if !ok {
			return ErrDesktopClosed
		}
		return nil
	}
}

// Title shows the title of the focused window. An unreadable title shows
// as empty text.
type Title struct {
	desktop Desktop
	attrs   text.Attributes
	stretch bool
}

// NewTitle creates a title widget. It owns d.
func NewTitle(d Desktop, attrs text.Attributes, stretch bool) *Title {
	return &Title{desktop: d, attrs: attrs, stretch: stretch}
}

// Next implements bar.Producer.
func (t *Title) Next(ctx context.Context) (text.Block, error) {
	if err := waitChange(ctx, t.desktop); err != nil {
		return nil, err
	}
	title, err := t.desktop.ActiveTitle()
	if err != nil {
		title = ""
	}
	seg := t.attrs.Segment(title)
	seg.Stretch = t.stretch
	return text.Block{seg}, nil
}

// Close closes the desktop source.
func (t *Title) Close() error {
	return t.desktop.Close()
}

// PagerStyle holds the attributes of the three desktop kinds.
type PagerStyle struct {
	Active   text.Attributes
	Inactive text.Attributes
	NonEmpty text.Attributes
}

// Pager shows one segment per virtual desktop. Desktop state that cannot be
// read, for instance while the window manager restarts, shows as nothing
// until the next change.
type Pager struct {
	desktop Desktop
	style   PagerStyle
	logger  *slog.Logger
}

// NewPager creates a pager widget. It owns d.
func NewPager(d Desktop, style PagerStyle, logger *slog.Logger) *Pager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pager{desktop: d, style: style, logger: logger}
}

// Next implements bar.Producer.
func (p *Pager) Next(ctx context.Context) (text.Block, error) {
	if err := waitChange(ctx, p.desktop); err != nil {
		return nil, err
	}
	state, err := p.desktop.Desktops()
	if errors.Is(err, ErrDesktopClosed) {
		return nil, err
	}
	if err != nil {
		p.logger.Debug("desktops unavailable", "error", err)
		return text.Block{}, nil
	}
	return PagerBlock(state, p.style), nil
}

// Close closes the desktop source.
func (p *Pager) Close() error {
	return p.desktop.Close()
}

// PagerBlock renders the desktop state. Names beyond Count are dropped and
// unnamed desktops show as "?".
func PagerBlock(s DesktopState, style PagerStyle) text.Block {
	if s.Count <= 0 {
		return text.Block{}
	}
	b := make(text.Block, 0, s.Count)
	for i := 0; i < s.Count; i++ {
		name := "?"
		if i < len(s.Names) && s.Names[i] != "" {
			name = s.Names[i]
		}
		attrs := style.Inactive
		switch {
		case i == s.Current:
			attrs = style.Active
		case i < len(s.Occupied) && s.Occupied[i]:
			attrs = style.NonEmpty
		}
		b = append(b, attrs.Segment(name))
	}
	return b
}
