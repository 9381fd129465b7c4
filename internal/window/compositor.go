package window

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgbutil/xprop"
)

// CompositorStatus is the detected state of the X compositing manager.
type CompositorStatus int

const (
	// CompositorUnknown means detection failed.
	CompositorUnknown CompositorStatus = iota
	// CompositorActive means translucent backgrounds will blend.
	CompositorActive
	// CompositorInactive means translucent backgrounds will look opaque.
	CompositorInactive
)

// String returns the status as a lowercase word.
func (cs CompositorStatus) String() string {
	switch cs {
	case CompositorActive:
		return "active"
	case CompositorInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// CompositorProber is implemented by displays that can tell whether a
// compositing manager is running.
type CompositorProber interface {
	Compositor() CompositorStatus
}

// knownCompositors are process names checked when the selection probe
// cannot decide.
var knownCompositors = []string{
	"picom",
	"compton",
	"compiz",
	"mutter",
	"kwin_x11",
	"xfwm4",
	"marco",
	"muffin",
}

// Compositor implements CompositorProber. A compositing manager owns the
// _NET_WM_CM_Sn selection of the screen it manages.
func (d *X11Display) Compositor() CompositorStatus {
	name := fmt.Sprintf("_NET_WM_CM_S%d", d.xu.Conn().DefaultScreen)
	atom, err := xprop.Atm(d.xu, name)
	if err != nil {
		return compositorProcess()
	}
	owner, err := xproto.GetSelectionOwner(d.xu.Conn(), atom).Reply()
	if err != nil {
		return compositorProcess()
	}
	if owner.Owner != xproto.WindowNone {
		return CompositorActive
	}
	return CompositorInactive
}

var lookupProcess = func(name string) bool {
	return exec.Command("pgrep", "-x", name).Run() == nil
}

func compositorProcess() CompositorStatus {
	for _, name := range knownCompositors {
		if lookupProcess(name) {
			return CompositorActive
		}
	}
	return CompositorInactive
}

// IsWayland reports whether the session runs under Wayland, where
// compositing is always available.
func IsWayland() bool {
	if strings.EqualFold(os.Getenv("XDG_SESSION_TYPE"), "wayland") {
		return true
	}
	return os.Getenv("WAYLAND_DISPLAY") != ""
}

// TransparencyWarning returns a warning when a background with the given
// alpha will not blend on d, or an empty string.
func TransparencyWarning(d Display, alpha uint8) string {
	if alpha == 0xff || IsWayland() {
		return ""
	}
	prober, ok := d.(CompositorProber)
	if !ok {
		return ""
	}
	switch prober.Compositor() {
	case CompositorActive:
		return ""
	case CompositorInactive:
		return "no compositor detected: the translucent bar background will be drawn opaque"
	default:
		return "could not detect a compositor: the translucent bar background may be drawn opaque"
	}
}
