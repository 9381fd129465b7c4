//go:build !noebiten

// Package preview shows the bar in an ordinary Ebiten window. It is meant
// for working on bar configurations in sessions without a dock-aware window
// manager: struts are recorded but have no effect.
package preview

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/opd-ai/go-dockbar/internal/window"
)

// DefaultOutput is the simulated output used when none is given.
var DefaultOutput = image.Rect(0, 0, 1280, 720)

// ErrNotCreated is returned by operations that need the window.
var ErrNotCreated = errors.New("preview window not created")

// Display implements window.Display on top of Ebiten.
//
// Run must be called from the main goroutine; every other method may be
// called from any goroutine.
type Display struct {
	output image.Rectangle

	mu      sync.Mutex
	created bool
	title   string
	size    image.Point
	strut   window.Strut
	frame   *image.RGBA
	fresh   bool
	blits   int

	events    chan window.Event
	done      chan struct{}
	closeOnce sync.Once
	eventOnce sync.Once
}

var _ window.Display = (*Display)(nil)

// New creates a preview display pretending to be an output of the given
// bounds. An empty rectangle means DefaultOutput.
func New(output image.Rectangle) *Display {
	if output.Empty() {
		output = DefaultOutput
	}
	return &Display{
		output: output,
		events: make(chan window.Event, 16),
		done:   make(chan struct{}),
	}
}

// OutputBounds implements window.Display.
func (d *Display) OutputBounds(ctx context.Context) (window.Output, error) {
	if err := ctx.Err(); err != nil {
		return window.Output{}, err
	}
	return window.Output{Bounds: d.output, Root: d.output}, nil
}

// CreateDock implements window.Display.
func (d *Display) CreateDock(rect image.Rectangle, class string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = true
	d.title = class
	d.size = rect.Size()
	return nil
}

// MoveResize implements window.Display.
func (d *Display) MoveResize(rect image.Rectangle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.created {
		return ErrNotCreated
	}
	d.size = rect.Size()
	return nil
}

// SetStrut implements window.Display. The strut is only recorded.
func (d *Display) SetStrut(s window.Strut) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.created {
		return ErrNotCreated
	}
	d.strut = s
	return nil
}

// Strut returns the last strut set.
func (d *Display) Strut() window.Strut {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.strut
}

// Blit implements window.Display. The surface is copied; it is drawn on the
// next Ebiten frame.
func (d *Display) Blit(surface *image.RGBA) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.created {
		return ErrNotCreated
	}
	b := surface.Bounds()
	if d.frame == nil || d.frame.Bounds().Size() != b.Size() {
		d.frame = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	}
	for y := 0; y < b.Dy(); y++ {
		src := surface.Pix[surface.PixOffset(b.Min.X, b.Min.Y+y):]
		copy(d.frame.Pix[y*d.frame.Stride:(y+1)*d.frame.Stride], src[:4*b.Dx()])
	}
	d.fresh = true
	d.blits++
	return nil
}

// Blits returns how many surfaces were presented.
func (d *Display) Blits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.blits
}

// Events implements window.Display.
func (d *Display) Events() <-chan window.Event {
	return d.events
}

// Close implements window.Display. It makes a running Run return.
func (d *Display) Close() error {
	d.closeOnce.Do(func() { close(d.done) })
	return nil
}

// Run opens the preview window and blocks until it is closed, ctx is done,
// or Close is called. Closing the window delivers a Destroy event.
func (d *Display) Run(ctx context.Context) error {
	d.mu.Lock()
	size, title := d.size, d.title
	d.mu.Unlock()
	if size.X <= 0 || size.Y <= 0 {
		return ErrNotCreated
	}

	ebiten.SetWindowSize(size.X, size.Y)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowDecorated(false)
	ebiten.SetWindowFloating(true)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetRunnableOnUnfocused(true)

	err := ebiten.RunGame(&game{d: d, ctx: ctx})
	d.destroyed()
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// destroyed sends a single Destroy event and ends the event stream.
func (d *Display) destroyed() {
	d.eventOnce.Do(func() {
		select {
		case d.events <- window.Event{Kind: window.EventDestroy}:
		default:
		}
		close(d.events)
	})
}

// game adapts Display to ebiten.Game.
type game struct {
	d   *Display
	ctx context.Context
	img *ebiten.Image
}

// Update implements ebiten.Game.
func (g *game) Update() error {
	select {
	case <-g.ctx.Done():
		return ebiten.Termination
	case <-g.d.done:
		return ebiten.Termination
	default:
	}
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}

	g.d.mu.Lock()
	size := g.d.size
	g.d.mu.Unlock()
	if w, h := ebiten.WindowSize(); w != size.X || h != size.Y {
		ebiten.SetWindowSize(size.X, size.Y)
		select {
		case g.d.events <- window.Event{Kind: window.EventExpose, Bounds: image.Rectangle{Max: size}}:
		default:
		}
	}
	return nil
}

// Draw implements ebiten.Game.
func (g *game) Draw(screen *ebiten.Image) {
	g.d.mu.Lock()
	frame, fresh := g.d.frame, g.d.fresh
	if fresh && frame != nil {
		b := frame.Bounds()
		if g.img == nil || g.img.Bounds().Size() != b.Size() {
			if g.img != nil {
				g.img.Deallocate()
			}
			g.img = ebiten.NewImage(b.Dx(), b.Dy())
		}
		g.img.WritePixels(frame.Pix)
		g.d.fresh = false
	}
	g.d.mu.Unlock()

	if g.img != nil {
		screen.DrawImage(g.img, nil)
	}
}

// Layout implements ebiten.Game.
func (g *game) Layout(int, int) (int, int) {
	g.d.mu.Lock()
	defer g.d.mu.Unlock()
	return max(g.d.size.X, 1), max(g.d.size.Y, 1)
}
