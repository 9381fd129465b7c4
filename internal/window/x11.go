package window

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	xxinerama "github.com/jezek/xgb/xinerama"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgbutil"
	"github.com/jezek/xgbutil/ewmh"
	"github.com/jezek/xgbutil/icccm"
	"github.com/jezek/xgbutil/xgraphics"
	"github.com/jezek/xgbutil/xinerama"
	"github.com/jezek/xgbutil/xprop"
	"github.com/jezek/xgbutil/xwindow"
)

// X11Display is a Display backed by an X server connection.
type X11Display struct {
	xu     *xgbutil.XUtil
	head   int
	logger *slog.Logger

	// xinerama reports whether the Xinerama extension is usable.
	xinerama bool

	mu     sync.Mutex
	win    *xwindow.Window
	events chan Event
	done   chan struct{}
	once   sync.Once
}

var _ Display = (*X11Display)(nil)

// NewX11Display connects to the X server named by display, or $DISPLAY when
// it is empty. head selects the Xinerama output the bar is placed on.
func NewX11Display(display string, head int, logger *slog.Logger) (*X11Display, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	d := &X11Display{
		xu:     xu,
		head:   head,
		logger: logger,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
	if err := xxinerama.Init(xu.Conn()); err != nil {
		logger.Debug("xinerama unavailable, using the root window as the output", "error", err)
	} else {
		d.xinerama = true
	}
	return d, nil
}

// XUtil returns the underlying connection.
func (d *X11Display) XUtil() *xgbutil.XUtil {
	return d.xu
}

// OutputBounds implements Display.
func (d *X11Display) OutputBounds(ctx context.Context) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	rg := xwindow.RootGeometry(d.xu)
	root := image.Rect(rg.X(), rg.Y(), rg.X()+rg.Width(), rg.Y()+rg.Height())
	out := Output{Bounds: root, Root: root}
	if !d.xinerama {
		return out, nil
	}

	heads, err := xinerama.PhysicalHeads(d.xu)
	if err != nil {
		d.logger.Warn("could not query xinerama heads", "error", err)
		return out, nil
	}
	if len(heads) == 0 {
		return out, nil
	}
	h := heads[0]
	if d.head >= 0 && d.head < len(heads) {
		h = heads[d.head]
	}
	x, y, w, ht := h.Pieces()
	out.Bounds = image.Rect(x, y, x+w, y+ht)
	return out, nil
}

// CreateDock implements Display. The window is typed as a dock, kept on
// every desktop above normal windows, and mapped before returning.
func (d *X11Display) CreateDock(rect image.Rectangle, class string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.win != nil {
		return fmt.Errorf("dock window already created")
	}

	win, err := xwindow.Generate(d.xu)
	if err != nil {
		return fmt.Errorf("generate window id: %w", err)
	}
	win.Create(d.xu.RootWin(), rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy(),
		xproto.CwEventMask,
		xproto.EventMaskExposure|xproto.EventMaskStructureNotify)

	if err := ewmh.WmWindowTypeSet(d.xu, win.Id, []string{"_NET_WM_WINDOW_TYPE_DOCK"}); err != nil {
		return fmt.Errorf("set window type: %w", err)
	}
	states := []string{
		"_NET_WM_STATE_STICKY",
		"_NET_WM_STATE_ABOVE",
		"_NET_WM_STATE_SKIP_TASKBAR",
		"_NET_WM_STATE_SKIP_PAGER",
	}
	if err := ewmh.WmStateSet(d.xu, win.Id, states); err != nil {
		return fmt.Errorf("set window state: %w", err)
	}
	if err := ewmh.WmDesktopSet(d.xu, win.Id, 0xFFFFFFFF); err != nil {
		return fmt.Errorf("set window desktop: %w", err)
	}
	if err := icccm.WmClassSet(d.xu, win.Id, &icccm.WmClass{Instance: class, Class: class}); err != nil {
		return fmt.Errorf("set WM_CLASS: %w", err)
	}
	if err := ewmh.WmNameSet(d.xu, win.Id, class); err != nil {
		return fmt.Errorf("set window name: %w", err)
	}

	// Root structure changes and desktop geometry properties signal output
	// reconfiguration.
	err = xproto.ChangeWindowAttributesChecked(d.xu.Conn(), d.xu.RootWin(),
		xproto.CwEventMask, []uint32{xproto.EventMaskStructureNotify | xproto.EventMaskPropertyChange}).Check()
	if err != nil {
		return fmt.Errorf("select root events: %w", err)
	}

	win.Map()
	d.win = win
	t := eventTranslator{bar: win.Id, root: d.xu.RootWin(), outputAtoms: d.outputAtoms()}
	go d.readEvents(t)
	return nil
}

// outputPropertyNames are the root properties whose changes mean the usable
// output area may have changed.
var outputPropertyNames = []string{"_NET_DESKTOP_GEOMETRY", "_NET_WORKAREA"}

func (d *X11Display) outputAtoms() map[xproto.Atom]bool {
	atoms := make(map[xproto.Atom]bool, len(outputPropertyNames))
	for _, name := range outputPropertyNames {
		atom, err := xprop.Atm(d.xu, name)
		if err != nil {
			d.logger.Debug("cannot intern atom", "atom", name, "error", err)
			continue
		}
		atoms[atom] = true
	}
	return atoms
}

// MoveResize implements Display.
func (d *X11Display) MoveResize(rect image.Rectangle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.win == nil {
		return fmt.Errorf("no dock window")
	}
	d.win.MoveResize(rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy())
	return nil
}

// SetStrut implements Display. Both the partial and the legacy strut
// properties are set.
func (d *X11Display) SetStrut(s Strut) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.win == nil {
		return fmt.Errorf("no dock window")
	}
	partial := &ewmh.WmStrutPartial{
		Top:          s.Top,
		Bottom:       s.Bottom,
		TopStartX:    s.TopStartX,
		TopEndX:      s.TopEndX,
		BottomStartX: s.BottomStartX,
		BottomEndX:   s.BottomEndX,
	}
	if err := ewmh.WmStrutPartialSet(d.xu, d.win.Id, partial); err != nil {
		return fmt.Errorf("set _NET_WM_STRUT_PARTIAL: %w", err)
	}
	if err := ewmh.WmStrutSet(d.xu, d.win.Id, &ewmh.WmStrut{Top: s.Top, Bottom: s.Bottom}); err != nil {
		return fmt.Errorf("set _NET_WM_STRUT: %w", err)
	}
	return nil
}

// Blit implements Display.
func (d *X11Display) Blit(surface *image.RGBA) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.win == nil {
		return fmt.Errorf("no dock window")
	}
	ximg := xgraphics.NewConvert(d.xu, surface)
	defer ximg.Destroy()
	if err := ximg.XSurfaceSet(d.win.Id); err != nil {
		return fmt.Errorf("create pixmap: %w", err)
	}
	ximg.XDraw()
	ximg.XPaint(d.win.Id)
	return nil
}

// Events implements Display.
func (d *X11Display) Events() <-chan Event {
	return d.events
}

// Close implements Display.
func (d *X11Display) Close() error {
	d.once.Do(func() {
		close(d.done)
		d.mu.Lock()
		if d.win != nil {
			d.win.Destroy()
		}
		d.mu.Unlock()
		d.xu.Conn().Close()
	})
	return nil
}

// readEvents translates X events for the bar and root windows until the
// connection closes.
func (d *X11Display) readEvents(t eventTranslator) {
	defer close(d.events)
	for {
		ev, xerr := d.xu.Conn().WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			d.logger.Warn("X error", "error", xerr)
			continue
		}

		out, ok := t.translate(ev)
		if !ok {
			continue
		}
		select {
		case d.events <- out:
		case <-d.done:
			return
		}
	}
}

// eventTranslator maps X events to window events.
type eventTranslator struct {
	bar, root   xproto.Window
	outputAtoms map[xproto.Atom]bool
}

// translate returns the window event for ev, or false when ev is not about
// the bar window or its output.
func (t eventTranslator) translate(ev xgb.Event) (Event, bool) {
	switch e := ev.(type) {
	case xproto.ExposeEvent:
		if e.Window != t.bar || e.Count != 0 {
			return Event{}, false
		}
		x, y := int(e.X), int(e.Y)
		return Event{Kind: EventExpose, Bounds: image.Rect(x, y, x+int(e.Width), y+int(e.Height))}, true
	case xproto.ConfigureNotifyEvent:
		switch e.Window {
		case t.bar:
			x, y := int(e.X), int(e.Y)
			return Event{Kind: EventConfigure, Bounds: image.Rect(x, y, x+int(e.Width), y+int(e.Height))}, true
		case t.root:
			return Event{Kind: EventOutputChanged}, true
		}
	case xproto.PropertyNotifyEvent:
		if e.Window == t.root && t.outputAtoms[e.Atom] {
			return Event{Kind: EventOutputChanged}, true
		}
	case xproto.DestroyNotifyEvent:
		if e.Window == t.bar {
			return Event{Kind: EventDestroy}, true
		}
	}
	return Event{}, false
}
