package window

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/opd-ai/go-dockbar/internal/render"
)

var fullHD = image.Rect(0, 0, 1920, 1080)

func openLayer(t *testing.T, d *fakeDisplay, p Placement) *Layer {
	t.Helper()
	l := NewLayer(d, p, nil)
	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func recv(t *testing.T, ch <-chan Event) (Event, bool) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		return ev, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}, false
	}
}

func TestLayerOpenReservesTopStrut(t *testing.T) {
	d := newFakeDisplay(fullHD)
	l := openLayer(t, d, Placement{Position: render.PositionTop, Height: 20})

	if l.State() != StateRunning {
		t.Fatalf("State() = %s, want running", l.State())
	}
	if len(d.created) != 1 || d.created[0] != image.Rect(0, 0, 1920, 20) {
		t.Errorf("created = %v", d.created)
	}
	want := Strut{Top: 20, TopStartX: 0, TopEndX: 1919}
	if len(d.struts) != 1 || d.struts[0] != want {
		t.Errorf("struts = %+v, want [%+v]", d.struts, want)
	}
	if got := l.Geometry(); got.Width != 1920 || got.Height != 20 {
		t.Errorf("Geometry() = %v", got)
	}
}

func TestLayerStateMachine(t *testing.T) {
	d := newFakeDisplay(fullHD)
	l := NewLayer(d, Placement{Height: 20}, nil)
	surface := image.NewRGBA(image.Rect(0, 0, 1920, 20))

	if err := l.Present(surface); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Present() before Open = %v, want ErrInvalidState", err)
	}
	if _, err := l.Reconfigure(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Reconfigure() before Open = %v, want ErrInvalidState", err)
	}
	if err := l.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := l.Open(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Open() = %v, want ErrInvalidState", err)
	}
	if err := l.Present(surface); err != nil {
		t.Errorf("Present() while running = %v", err)
	}

	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if l.State() != StateClosed {
		t.Errorf("State() = %s, want closed", l.State())
	}
	if err := l.Present(surface); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Present() after Close = %v, want ErrInvalidState", err)
	}
	if d.blits != 1 || d.closed != 1 {
		t.Errorf("blits = %d closed = %d, want 1 and 1", d.blits, d.closed)
	}
	if _, ok := <-l.Events(); ok {
		t.Error("events channel should be closed after Close")
	}
}

func TestLayerSnapshot(t *testing.T) {
	d := newFakeDisplay(fullHD)
	l := openLayer(t, d, Placement{Height: 20})
	if l.Snapshot() != nil {
		t.Fatal("Snapshot() before any Present should be nil")
	}

	surface := image.NewRGBA(image.Rect(0, 0, 1920, 20))
	surface.Pix[0] = 0xff
	if err := l.Present(surface); err != nil {
		t.Fatal(err)
	}
	surface.Pix[0] = 0x01

	snap := l.Snapshot()
	if snap == nil || snap.Bounds() != surface.Bounds() {
		t.Fatalf("Snapshot() = %v", snap)
	}
	if snap.Pix[0] != 0xff {
		t.Errorf("snapshot shares memory with the presented surface")
	}
	snap.Pix[0] = 0x02
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if again := l.Snapshot(); again == nil || again.Pix[0] != 0xff {
		t.Error("Snapshot() after Close should still return the last frame")
	}
}

func TestLayerOpenFailureLeavesPartialState(t *testing.T) {
	d := newFakeDisplay(fullHD)
	d.strutErr = errors.New("BadWindow")
	l := NewLayer(d, Placement{Height: 20}, nil)
	if err := l.Open(context.Background()); err == nil {
		t.Fatal("Open() should fail when the strut cannot be set")
	}
	if l.State() != StateWindowCreated {
		t.Errorf("State() = %s, want window-created", l.State())
	}
	_ = l.Close()
	if d.closed != 1 {
		t.Errorf("display closed %d times, want 1", d.closed)
	}
}

func TestLayerDropsEventsAfterDestroy(t *testing.T) {
	d := newFakeDisplay(fullHD)
	l := openLayer(t, d, Placement{Height: 20})

	d.events <- Event{Kind: EventExpose}
	if ev, _ := recv(t, l.Events()); ev.Kind != EventExpose {
		t.Fatalf("got %s, want expose", ev.Kind)
	}

	d.events <- Event{Kind: EventDestroy}
	if ev, _ := recv(t, l.Events()); ev.Kind != EventDestroy {
		t.Fatalf("got %s, want destroy", ev.Kind)
	}
	if l.State() != StateShuttingDown {
		t.Errorf("State() = %s, want shutting-down", l.State())
	}

	d.events <- Event{Kind: EventExpose}
	close(d.events)
	if ev, ok := recv(t, l.Events()); ok {
		t.Errorf("event %s delivered after destroy", ev.Kind)
	}

	if err := l.Present(image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Errorf("Present() while shutting down = %v, want nil", err)
	}
	if d.blits != 0 {
		t.Errorf("blits = %d after destroy, want 0", d.blits)
	}
}

func TestLayerReconfigure(t *testing.T) {
	d := newFakeDisplay(fullHD)
	l := openLayer(t, d, Placement{Position: render.PositionBottom, Height: 20})

	g, err := l.Reconfigure(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(d.moved) != 0 || len(d.struts) != 1 {
		t.Errorf("unchanged output moved %d times and set %d struts", len(d.moved), len(d.struts))
	}

	bigger := image.Rect(0, 0, 2560, 1440)
	d.setOutput(Output{Bounds: bigger, Root: bigger})
	g, err = l.Reconfigure(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if g.Rect() != image.Rect(0, 1420, 2560, 1440) {
		t.Errorf("Reconfigure() = %v", g.Rect())
	}
	if len(d.moved) != 1 || d.moved[0] != g.Rect() {
		t.Errorf("moved = %v", d.moved)
	}
	want := Strut{Bottom: 20, BottomStartX: 0, BottomEndX: 2559}
	if d.struts[len(d.struts)-1] != want {
		t.Errorf("strut = %+v, want %+v", d.struts[len(d.struts)-1], want)
	}
	if l.Geometry() != g {
		t.Error("Geometry() not updated")
	}
}

func TestTransparencyWarning(t *testing.T) {
	t.Setenv("XDG_SESSION_TYPE", "x11")
	t.Setenv("WAYLAND_DISPLAY", "")

	d := newFakeDisplay(fullHD)
	if w := TransparencyWarning(d, 0xff); w != "" {
		t.Errorf("opaque background warned: %q", w)
	}
	d.status = CompositorInactive
	if w := TransparencyWarning(d, 0x80); w == "" {
		t.Error("expected a warning without a compositor")
	}
	d.status = CompositorActive
	if w := TransparencyWarning(d, 0x80); w != "" {
		t.Errorf("active compositor warned: %q", w)
	}

	t.Setenv("WAYLAND_DISPLAY", "wayland-0")
	d.status = CompositorInactive
	if w := TransparencyWarning(d, 0x80); w != "" {
		t.Errorf("wayland session warned: %q", w)
	}
}

func TestCompositorProcessFallback(t *testing.T) {
	orig := lookupProcess
	t.Cleanup(func() { lookupProcess = orig })

	lookupProcess = func(name string) bool { return name == "picom" }
	if got := compositorProcess(); got != CompositorActive {
		t.Errorf("compositorProcess() = %s, want active", got)
	}
	lookupProcess = func(string) bool { return false }
	if got := compositorProcess(); got != CompositorInactive {
		t.Errorf("compositorProcess() = %s, want inactive", got)
	}
}

func TestEventKindString(t *testing.T) {
	for kind, want := range map[EventKind]string{
		EventExpose:        "expose",
		EventConfigure:     "configure",
		EventOutputChanged: "output_changed",
		EventDestroy:       "destroy",
		EventKind(42):      "unknown",
	} {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
