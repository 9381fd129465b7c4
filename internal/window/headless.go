package window

import (
	"context"
	"errors"
	"image"
	"image/draw"
	"sync"
)

// DefaultHeadlessOutput is the output simulated by NewHeadless when given an
// empty rectangle.
var DefaultHeadlessOutput = image.Rect(0, 0, 1920, 1080)

// errNoDock is returned by Headless operations that need the dock window.
var errNoDock = errors.New("headless dock not created")

// Headless is a Display without a window system. Surfaces are kept in
// memory and events are only produced by SetOutput and Destroy.
type Headless struct {
	mu      sync.Mutex
	output  Output
	created bool
	closed  bool
	rect    image.Rectangle
	strut   Strut
	frame   *image.RGBA
	blits   int
	events  chan Event
}

var _ Display = (*Headless)(nil)

// NewHeadless creates a headless display whose only output has the given
// bounds.
func NewHeadless(bounds image.Rectangle) *Headless {
	if bounds.Empty() {
		bounds = DefaultHeadlessOutput
	}
	return &Headless{
		output: Output{Bounds: bounds, Root: bounds},
		events: make(chan Event, 16),
	}
}

// OutputBounds implements Display.
func (d *Headless) OutputBounds(context.Context) (Output, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.output, nil
}

// CreateDock implements Display.
func (d *Headless) CreateDock(rect image.Rectangle, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.created {
		return errors.New("headless dock already created")
	}
	d.created, d.rect = true, rect
	return nil
}

// MoveResize implements Display.
func (d *Headless) MoveResize(rect image.Rectangle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.created {
		return errNoDock
	}
	d.rect = rect
	return nil
}

// SetStrut implements Display.
func (d *Headless) SetStrut(s Strut) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.created {
		return errNoDock
	}
	d.strut = s
	return nil
}

// Blit implements Display. The surface is copied.
func (d *Headless) Blit(surface *image.RGBA) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.created || d.closed {
		return errNoDock
	}
	frame := image.NewRGBA(surface.Bounds())
	draw.Draw(frame, frame.Bounds(), surface, surface.Bounds().Min, draw.Src)
	d.frame = frame
	d.blits++
	return nil
}

// Events implements Display.
func (d *Headless) Events() <-chan Event {
	return d.events
}

// Close implements Display.
func (d *Headless) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	return nil
}

// Frame returns the last blitted surface, or nil.
func (d *Headless) Frame() *image.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame
}

// Blits returns how many surfaces were blitted.
func (d *Headless) Blits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.blits
}

// Rect returns the current dock rectangle.
func (d *Headless) Rect() image.Rectangle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rect
}

// Strut returns the last reserved strut.
func (d *Headless) Strut() Strut {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.strut
}

// SetOutput changes the output bounds and reports an output change.
func (d *Headless) SetOutput(bounds image.Rectangle) {
	d.mu.Lock()
	d.output = Output{Bounds: bounds, Root: bounds}
	d.mu.Unlock()
	d.send(Event{Kind: EventOutputChanged})
}

// Destroy reports that the dock window was destroyed.
func (d *Headless) Destroy() {
	d.send(Event{Kind: EventDestroy})
}

func (d *Headless) send(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.events <- ev:
	default:
	}
}
