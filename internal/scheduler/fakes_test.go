package scheduler

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/go-dockbar/internal/bar"
	"github.com/opd-ai/go-dockbar/internal/render"
	"github.com/opd-ai/go-dockbar/internal/text"
	"github.com/opd-ai/go-dockbar/internal/window"
)

// paint is what the recording painter saw on one Compose call.
type paint struct {
	slots    []bar.Slot
	geometry render.Geometry
}

// recorder implements Painter by remembering its inputs and announcing
// each paint on a channel.
type recorder struct {
	mu     sync.Mutex
	paints []paint
	ch     chan paint
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan paint, 256)}
}

func (r *recorder) Compose(slots []bar.Slot, g render.Geometry) *image.RGBA {
	p := paint{slots: slots, geometry: g}
	r.mu.Lock()
	r.paints = append(r.paints, p)
	r.mu.Unlock()
	select {
	case r.ch <- p:
	default:
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1))
}

func (r *recorder) all() []paint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]paint(nil), r.paints...)
}

// waitFor blocks until a paint satisfies ok or the test times out.
func (r *recorder) waitFor(t *testing.T, ok func(paint) bool) paint {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case p := <-r.ch:
			if ok(p) {
				return p
			}
		case <-deadline:
			t.Fatal("timed out waiting for paint")
			return paint{}
		}
	}
}

// fakeWindow implements Window.
type fakeWindow struct {
	mu          sync.Mutex
	geometry    render.Geometry
	next        []render.Geometry
	events      chan window.Event
	presents    int
	presentErr  error
	reconfigErr error
}

func newFakeWindow() *fakeWindow {
	return &fakeWindow{
		geometry: render.Geometry{Width: 1920, Height: 20},
		events:   make(chan window.Event, 16),
	}
}

func (w *fakeWindow) Geometry() render.Geometry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.geometry
}

func (w *fakeWindow) Reconfigure(context.Context) (render.Geometry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reconfigErr != nil {
		return render.Geometry{}, w.reconfigErr
	}
	if len(w.next) > 0 {
		w.geometry, w.next = w.next[0], w.next[1:]
	}
	return w.geometry, nil
}

func (w *fakeWindow) Present(*image.RGBA) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.presentErr != nil {
		return w.presentErr
	}
	w.presents++
	return nil
}

func (w *fakeWindow) Events() <-chan window.Event {
	return w.events
}

func (w *fakeWindow) presented() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.presents
}

// step is one scripted producer outcome.
type step struct {
	text string
	err  error
}

// scripted is a producer fed from a channel. Closing the channel ends the
// stream.
type scripted chan step

func (s scripted) Next(ctx context.Context) (text.Block, error) {
	select {
	case st, ok := <-s:
		if !ok {
			return nil, bar.ErrEndOfStream
		}
		if st.err != nil {
			return nil, st.err
		}
		return text.Block{{Text: st.text}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// blocking is a producer that only returns on cancellation, and records it.
type blocking struct {
	cancelled chan struct{}
}

func newBlocking() *blocking {
	return &blocking{cancelled: make(chan struct{})}
}

func (b *blocking) Next(ctx context.Context) (text.Block, error) {
	<-ctx.Done()
	close(b.cancelled)
	return nil, ctx.Err()
}

var errBoom = errors.New("boom")

func textOf(s bar.Slot) string {
	if len(s.Block) == 0 {
		return ""
	}
	return s.Block[0].Text
}

func specs(names ...string) []bar.SlotSpec {
	out := make([]bar.SlotSpec, len(names))
	for i, n := range names {
		out[i] = bar.SlotSpec{Name: n, Align: bar.AlignLeft}
	}
	return out
}
