package window

import (
	"context"
	"image"
	"sync"
)

// fakeDisplay records every call made by a Layer.
type fakeDisplay struct {
	mu       sync.Mutex
	output   Output
	outErr   error
	created  []image.Rectangle
	moved    []image.Rectangle
	struts   []Strut
	blits    int
	closed   int
	status   CompositorStatus
	events   chan Event
	strutErr error
}

func newFakeDisplay(bounds image.Rectangle) *fakeDisplay {
	return &fakeDisplay{
		output: Output{Bounds: bounds, Root: bounds},
		events: make(chan Event, 8),
	}
}

func (d *fakeDisplay) OutputBounds(context.Context) (Output, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.output, d.outErr
}

func (d *fakeDisplay) setOutput(o Output) {
	d.mu.Lock()
	d.output = o
	d.mu.Unlock()
}

func (d *fakeDisplay) CreateDock(rect image.Rectangle, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, rect)
	return nil
}

func (d *fakeDisplay) MoveResize(rect image.Rectangle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.moved = append(d.moved, rect)
	return nil
}

func (d *fakeDisplay) SetStrut(s Strut) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.strutErr != nil {
		return d.strutErr
	}
	d.struts = append(d.struts, s)
	return nil
}

func (d *fakeDisplay) Blit(*image.RGBA) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blits++
	return nil
}

func (d *fakeDisplay) Events() <-chan Event {
	return d.events
}

func (d *fakeDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

func (d *fakeDisplay) Compositor() CompositorStatus {
	return d.status
}
