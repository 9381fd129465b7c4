package widget

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgbutil"
	"github.com/jezek/xgbutil/ewmh"
	"github.com/jezek/xgbutil/icccm"
	"github.com/jezek/xgbutil/xprop"
)

// rootAtoms are the root window properties that change the title or pager.
var rootAtoms = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_NUMBER_OF_DESKTOPS",
	"_NET_CURRENT_DESKTOP",
	"_NET_DESKTOP_NAMES",
	"_NET_CLIENT_LIST",
}

// titleAtoms are the properties of the focused window that hold its title.
var titleAtoms = []string{"_NET_WM_NAME", "WM_NAME"}

// X11Desktop reads EWMH state from its own X connection and reports
// property changes on the root window and the focused window.
type X11Desktop struct {
	xu     *xgbutil.XUtil
	logger *slog.Logger

	root  map[xproto.Atom]bool
	title map[xproto.Atom]bool

	mu     sync.Mutex
	active xproto.Window

	changes chan struct{}
	once    sync.Once
}

var _ Desktop = (*X11Desktop)(nil)

// DialX11 connects to display, or $DISPLAY when it is empty.
func DialX11(display string, logger *slog.Logger) (*X11Desktop, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	d := &X11Desktop{
		xu:      xu,
		logger:  logger,
		root:    make(map[xproto.Atom]bool),
		title:   make(map[xproto.Atom]bool),
		changes: make(chan struct{}, 1),
	}
	if err := d.internAtoms(); err != nil {
		xu.Conn().Close()
		return nil, err
	}

	err = xproto.ChangeWindowAttributesChecked(xu.Conn(), xu.RootWin(),
		xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange}).Check()
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("select root property events: %w", err)
	}

	d.notify()
	go d.readEvents()
	return d, nil
}

func (d *X11Desktop) internAtoms() error {
	for _, set := range []struct {
		names []string
		dst   map[xproto.Atom]bool
	}{{rootAtoms, d.root}, {titleAtoms, d.title}} {
		for _, name := range set.names {
			atom, err := xprop.Atm(d.xu, name)
			if err != nil {
				return fmt.Errorf("intern %s: %w", name, err)
			}
			set.dst[atom] = true
		}
	}
	return nil
}

// Changes implements Desktop.
func (d *X11Desktop) Changes() <-chan struct{} {
	return d.changes
}

// notify records a pending change without blocking; changes that arrive
// before the widget reads coalesce into one.
func (d *X11Desktop) notify() {
	select {
	case d.changes <- struct{}{}:
	default:
	}
}

// ActiveTitle implements Desktop. It also moves the title watch to the
// focused window.
func (d *X11Desktop) ActiveTitle() (string, error) {
	win, err := ewmh.ActiveWindowGet(d.xu)
	if err != nil {
		return "", err
	}
	d.watchActive(win)
	if win == 0 {
		return "", nil
	}

	if name, err := ewmh.WmNameGet(d.xu, win); err == nil && name != "" {
		return name, nil
	}
	return icccm.WmNameGet(d.xu, win)
}

func (d *X11Desktop) watchActive(win xproto.Window) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if win == d.active {
		return
	}
	d.active = win
	if win == 0 {
		return
	}
	// The window may already be gone; its title then reads as empty.
	err := xproto.ChangeWindowAttributesChecked(d.xu.Conn(), win,
		xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange}).Check()
	if err != nil {
		d.logger.Debug("cannot watch focused window", "window", win, "error", err)
	}
}

// Desktops implements Desktop.
func (d *X11Desktop) Desktops() (DesktopState, error) {
	count, err := ewmh.NumberOfDesktopsGet(d.xu)
	if err != nil {
		return DesktopState{}, fmt.Errorf("read _NET_NUMBER_OF_DESKTOPS: %w", err)
	}
	current, err := ewmh.CurrentDesktopGet(d.xu)
	if err != nil {
		return DesktopState{}, fmt.Errorf("read _NET_CURRENT_DESKTOP: %w", err)
	}
	names, err := ewmh.DesktopNamesGet(d.xu)
	if err != nil {
		names = nil
	}

	s := DesktopState{
		Count:    int(count),
		Current:  int(current),
		Names:    names,
		Occupied: make([]bool, count),
	}
	clients, err := ewmh.ClientListGet(d.xu)
	if err != nil {
		return s, nil
	}
	for _, win := range clients {
		if !isNormalWindow(d.xu, win) {
			continue
		}
		desk, err := ewmh.WmDesktopGet(d.xu, win)
		if err != nil || int(desk) >= s.Count {
			continue
		}
		s.Occupied[desk] = true
	}
	return s, nil
}

// isNormalWindow reports whether win is an ordinary application window.
// Windows without a type count as normal.
func isNormalWindow(xu *xgbutil.XUtil, win xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(xu, win)
	if err != nil || len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_NORMAL" {
			return true
		}
	}
	return false
}

// Close implements Desktop.
func (d *X11Desktop) Close() error {
	d.once.Do(func() {
		d.xu.Conn().Close()
	})
	return nil
}

func (d *X11Desktop) readEvents() {
	defer close(d.changes)
	root := d.xu.RootWin()
	for {
		ev, xerr := d.xu.Conn().WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			d.logger.Debug("X error", "error", xerr)
			continue
		}
		e, ok := ev.(xproto.PropertyNotifyEvent)
		if !ok {
			continue
		}

		d.mu.Lock()
		active := d.active
		d.mu.Unlock()

		switch {
		case e.Window == root && d.root[e.Atom]:
			d.notify()
		case e.Window == active && d.title[e.Atom]:
			d.notify()
		}
	}
}
