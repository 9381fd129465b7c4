package window

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/opd-ai/go-dockbar/internal/render"
)

// State is a Layer lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateWindowCreated
	StateStrutReserved
	StateRunning
	StateShuttingDown
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateWindowCreated:
		return "window-created"
	case StateStrutReserved:
		return "strut-reserved"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting-down"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrInvalidState is returned when an operation is not allowed in the
// layer's current state.
var ErrInvalidState = errors.New("invalid window layer state")

// DefaultClass is the WM_CLASS of the bar window.
const DefaultClass = "dockbar-go"

// Layer owns a Display for the lifetime of the bar.
type Layer struct {
	display   Display
	placement Placement
	class     string
	logger    *slog.Logger

	mu       sync.Mutex
	state    State
	geometry render.Geometry
	root     image.Rectangle
	// last is a copy of the last presented surface.
	last *image.RGBA

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// NewLayer wraps d. Nothing is created on screen until Open.
func NewLayer(d Display, p Placement, logger *slog.Logger) *Layer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Layer{
		display:   d,
		placement: p,
		class:     DefaultClass,
		logger:    logger,
		events:    make(chan Event, 16),
		done:      make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (l *Layer) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Geometry returns the current bar geometry.
func (l *Layer) Geometry() render.Geometry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.geometry
}

// Events delivers the display's events while the layer is running. The
// channel is closed when the display connection ends.
func (l *Layer) Events() <-chan Event {
	return l.events
}

// Open computes the geometry, creates the dock window, reserves its strut
// and starts forwarding events. On error the layer stays in the state it
// reached and the caller should Close it.
func (l *Layer) Open(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateUninitialized {
		return fmt.Errorf("open in state %s: %w", l.state, ErrInvalidState)
	}

	out, err := l.display.OutputBounds(ctx)
	if err != nil {
		return fmt.Errorf("query output: %w", err)
	}
	g, err := ComputeGeometry(l.placement, out.Bounds)
	if err != nil {
		return fmt.Errorf("compute geometry: %w", err)
	}

	if err := l.display.CreateDock(g.Rect(), l.class); err != nil {
		return fmt.Errorf("create dock window: %w", err)
	}
	l.geometry, l.root = g, out.Root
	l.state = StateWindowCreated

	strut := ComputeStrut(g, out.Root)
	if err := l.display.SetStrut(strut); err != nil {
		return fmt.Errorf("reserve strut: %w", err)
	}
	l.state = StateStrutReserved
	l.logger.Debug("dock window ready", "geometry", g.String(), "strut_top", strut.Top, "strut_bottom", strut.Bottom)

	l.wg.Add(1)
	go l.forward(l.display.Events())
	l.state = StateRunning
	return nil
}

// Reconfigure queries the output again and, if the geometry changed,
// moves the window and renews the strut.
func (l *Layer) Reconfigure(ctx context.Context) (render.Geometry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateRunning {
		return l.geometry, fmt.Errorf("reconfigure in state %s: %w", l.state, ErrInvalidState)
	}

	out, err := l.display.OutputBounds(ctx)
	if err != nil {
		return l.geometry, fmt.Errorf("query output: %w", err)
	}
	g, err := ComputeGeometry(l.placement, out.Bounds)
	if err != nil {
		return l.geometry, fmt.Errorf("compute geometry: %w", err)
	}
	if g == l.geometry && out.Root == l.root {
		return g, nil
	}

	if g.Rect() != l.geometry.Rect() {
		if err := l.display.MoveResize(g.Rect()); err != nil {
			return l.geometry, fmt.Errorf("move dock window: %w", err)
		}
	}
	if err := l.display.SetStrut(ComputeStrut(g, out.Root)); err != nil {
		return l.geometry, fmt.Errorf("reserve strut: %w", err)
	}
	l.geometry, l.root = g, out.Root
	return g, nil
}

// Present blits surface to the window. It is only accepted while running;
// surfaces presented once shutdown has started are dropped.
func (l *Layer) Present(surface *image.RGBA) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateShuttingDown {
		return nil
	}
	if l.state != StateRunning {
		return fmt.Errorf("present in state %s: %w", l.state, ErrInvalidState)
	}
	if err := l.display.Blit(surface); err != nil {
		return err
	}
	if l.last == nil || l.last.Bounds() != surface.Bounds() {
		l.last = image.NewRGBA(surface.Bounds())
	}
	copy(l.last.Pix, surface.Pix)
	return nil
}

// Snapshot returns a copy of the last presented surface, or nil if nothing
// was presented yet. It stays available after Close.
func (l *Layer) Snapshot() *image.RGBA {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil {
		return nil
	}
	img := image.NewRGBA(l.last.Bounds())
	copy(img.Pix, l.last.Pix)
	return img
}

// Close releases the window and the display. It is safe to call more than
// once and in any state.
func (l *Layer) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.state = StateShuttingDown
		close(l.done)
		l.mu.Unlock()

		l.closeErr = l.display.Close()
		l.wg.Wait()

		l.mu.Lock()
		l.state = StateClosed
		l.mu.Unlock()
	})
	return l.closeErr
}

// forward relays display events until the display closes them or the layer
// shuts down. Events seen after shutdown starts are dropped; a Destroy
// event starts shutdown itself.
func (l *Layer) forward(in <-chan Event) {
	defer l.wg.Done()
	defer close(l.events)
	for {
		select {
		case <-l.done:
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			if !l.accept(ev) {
				l.logger.Debug("dropping window event", "kind", ev.Kind.String())
				continue
			}
			select {
			case l.events <- ev:
			case <-l.done:
				return
			}
		}
	}
}

func (l *Layer) accept(ev Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateRunning {
		return false
	}
	if ev.Kind == EventDestroy {
		l.state = StateShuttingDown
	}
	return true
}
