// Package scheduler drives the bar: it awaits every widget concurrently,
// applies their updates to the slot table and decides when to repaint.
//
// All bar state is owned by the goroutine running Scheduler.Run. Producers
// run on their own goroutines and only ever talk to it by sending results on
// a channel, so the table, the geometry and the surface need no locks.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/opd-ai/go-dockbar/internal/bar"
	"github.com/opd-ai/go-dockbar/internal/render"
	"github.com/opd-ai/go-dockbar/internal/text"
	"github.com/opd-ai/go-dockbar/internal/window"
)

// DefaultShutdownTimeout bounds how long Run waits for producers to return
// after cancellation.
const DefaultShutdownTimeout = 2 * time.Second

var (
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("scheduler already running")
	// ErrDisplayLost is returned when the window event stream closes
	// without a Destroy event.
	ErrDisplayLost = errors.New("display connection lost")
)

// Painter turns the slot table into pixels.
// *render.Compositor is the production implementation.
type Painter interface {
	Compose(slots []bar.Slot, g render.Geometry) *image.RGBA
}

// Window is what the scheduler needs from the window layer.
// *window.Layer is the production implementation.
type Window interface {
	// Geometry returns the current bar geometry.
	Geometry() render.Geometry
	// Reconfigure recomputes the geometry after a configure or output
	// change and returns the new value.
	Reconfigure(ctx context.Context) (render.Geometry, error)
	// Present shows a composed surface.
	Present(surface *image.RGBA) error
	// Events delivers window events. A nil channel means no events.
	Events() <-chan window.Event
}

// Observer receives notifications useful for metrics. All methods are
// called from the reactor goroutine.
type Observer interface {
	Painted(d time.Duration)
	WidgetUpdated(name string)
	WidgetFailed(name string, reason error)
	WindowEvent(kind string)
	Liveness(counts map[bar.Liveness]int)
}

// Config configures a Scheduler.
type Config struct {
	// Table holds one slot per producer, in the same order.
	Table *bar.Table
	// Producers feed the slots; Producers[i] owns slot i.
	Producers []bar.Producer
	Painter   Painter
	Window    Window
	// Logger receives widget failures and shutdown diagnostics.
	// Nil discards them.
	Logger   *slog.Logger
	Observer Observer
	// CoalesceWindow extends each reactor tick to collect events that
	// arrive within this duration of the first one. Zero coalesces only
	// events that are already ready.
	CoalesceWindow time.Duration
	// MaxPaintRate caps paints per second. Zero means unlimited.
	MaxPaintRate float64
	// ShutdownTimeout bounds the wait for producers on shutdown.
	// Zero means DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

// result is one outcome of Producer.Next, tagged with its slot.
type result struct {
	slot  int
	block text.Block
	err   error
}

// Scheduler is the bar's reactor.
type Scheduler struct {
	table     *bar.Table
	producers []bar.Producer
	painter   Painter
	win       Window
	logger    *slog.Logger
	observer  Observer
	coalesce  time.Duration
	limiter   *rate.Limiter
	timeout   time.Duration
	now       func() time.Time

	results chan result
	events  <-chan window.Event
	wg      sync.WaitGroup

	// Reactor-owned state.
	geometry  render.Geometry
	dirty     bool
	stopping  bool
	fatal     error
	paintWait *time.Timer
	deferred  bool
	reserved  bool

	running  atomic.Bool
	paints   atomic.Uint64
	snapshot atomic.Pointer[[]bar.Slot]
}

// New validates cfg and creates a Scheduler. Producers are not started until
// Run is called.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Table == nil {
		return nil, errors.New("scheduler: nil slot table")
	}
	if len(cfg.Producers) != cfg.Table.Len() {
		return nil, fmt.Errorf("scheduler: %d producers for %d slots", len(cfg.Producers), cfg.Table.Len())
	}
	for i, p := range cfg.Producers {
		if p == nil {
			return nil, fmt.Errorf("scheduler: nil producer for slot %d", i)
		}
	}
	if cfg.Painter == nil {
		return nil, errors.New("scheduler: nil painter")
	}
	if cfg.Window == nil {
		return nil, errors.New("scheduler: nil window")
	}

	s := &Scheduler{
		table:     cfg.Table,
		producers: cfg.Producers,
		painter:   cfg.Painter,
		win:       cfg.Window,
		logger:    cfg.Logger,
		observer:  cfg.Observer,
		coalesce:  max(cfg.CoalesceWindow, 0),
		timeout:   cfg.ShutdownTimeout,
		now:       cfg.Now,
		results:   make(chan result),
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.timeout <= 0 {
		s.timeout = DefaultShutdownTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if cfg.MaxPaintRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.MaxPaintRate), 1)
	}
	s.publish()
	return s, nil
}

// Snapshot returns a copy of the slots as of the end of the last reactor
// tick. It is safe to call from any goroutine.
func (s *Scheduler) Snapshot() []bar.Slot {
	p := s.snapshot.Load()
	out := make([]bar.Slot, len(*p))
	copy(out, *p)
	return out
}

// Paints returns how many surfaces have been presented.
func (s *Scheduler) Paints() uint64 {
	return s.paints.Load()
}

// Run starts every producer and serves events until ctx is cancelled, the
// window is destroyed, or the window layer fails. It paints once before
// waiting for the first event.
//
// Orderly shutdown returns nil. Window failures are returned as errors;
// widget failures never are.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.geometry = s.win.Geometry()
	s.events = s.win.Events()
	s.paintWait = time.NewTimer(time.Hour)
	s.paintWait.Stop()
	defer s.paintWait.Stop()

	for i, p := range s.producers {
		s.wg.Add(1)
		go s.pump(pctx, i, p)
	}

	s.dirty = true
	if err := s.paintIfDue(); err != nil {
		s.fatal = err
		s.stopping = true
	}
	s.publish()

	for !s.stopping {
		s.tick(ctx)
		if !s.stopping {
			if err := s.paintIfDue(); err != nil {
				s.fatal = err
				s.stopping = true
			}
		}
		s.publish()
	}

	cancel()
	s.waitProducers()
	return s.fatal
}

// tick blocks for one event, then gathers everything else that is ready.
func (s *Scheduler) tick(ctx context.Context) {
	select {
	case <-ctx.Done():
		s.stopping = true
		return
	case r := <-s.results:
		s.apply(ctx, r)
	case ev, ok := <-s.events:
		s.handleEvent(ctx, ev, ok)
	case <-s.paintWait.C:
		s.deferred = false
		s.reserved = true
		return
	}

	if s.coalesce > 0 && !s.stopping {
		quantum := time.NewTimer(s.coalesce)
		defer quantum.Stop()
	collect:
		for !s.stopping {
			select {
			case <-ctx.Done():
				s.stopping = true
			case r := <-s.results:
				s.apply(ctx, r)
			case ev, ok := <-s.events:
				s.handleEvent(ctx, ev, ok)
			case <-quantum.C:
				break collect
			}
		}
	}

	for !s.stopping {
		select {
		case r := <-s.results:
			s.apply(ctx, r)
		case ev, ok := <-s.events:
			s.handleEvent(ctx, ev, ok)
		default:
			return
		}
	}
}

func (s *Scheduler) apply(ctx context.Context, r result) {
	slot := s.table.Slot(r.slot)
	switch {
	case r.err == nil:
		changed, err := s.table.Update(r.slot, r.block, s.now())
		if err != nil {
			s.logger.Warn("dropping update for stopped widget", "widget", slot.Name, "error", err)
			return
		}
		s.observer.WidgetUpdated(slot.Name)
		if changed || slot.Liveness == bar.Pending {
			s.dirty = true
		}
	case errors.Is(r.err, bar.ErrEndOfStream):
		_ = s.table.Complete(r.slot)
		s.logger.Debug("widget completed", "widget", slot.Name)
	case ctx.Err() != nil:
		// Cancellation during shutdown is not a widget failure.
	default:
		_ = s.table.Fail(r.slot, r.err)
		s.observer.WidgetFailed(slot.Name, r.err)
		s.logger.Error("widget failed", "widget", slot.Name, "slot", r.slot, "error", r.err)
	}
}

func (s *Scheduler) handleEvent(ctx context.Context, ev window.Event, ok bool) {
	if !ok {
		s.events = nil
		s.fatal = ErrDisplayLost
		s.stopping = true
		return
	}
	s.observer.WindowEvent(ev.Kind.String())

	switch ev.Kind {
	case window.EventExpose:
		s.dirty = true
	case window.EventConfigure, window.EventOutputChanged:
		g, err := s.win.Reconfigure(ctx)
		if err != nil {
			s.fatal = fmt.Errorf("reconfigure after %s: %w", ev.Kind, err)
			s.stopping = true
			return
		}
		if g != s.geometry {
			s.logger.Debug("geometry changed", "from", s.geometry.String(), "to", g.String())
		}
		s.geometry = g
		s.dirty = true
	case window.EventDestroy:
		s.logger.Info("bar window destroyed, shutting down")
		s.stopping = true
	}
}

// paintIfDue paints when the bar is dirty, unless the paint rate limit asks
// for a delay, in which case the paint timer is armed instead.
func (s *Scheduler) paintIfDue() error {
	if !s.dirty || s.stopping || s.deferred {
		return nil
	}
	if s.limiter != nil && !s.reserved {
		if d := s.limiter.Reserve().Delay(); d > 0 {
			s.paintWait.Reset(d)
			s.deferred = true
			return nil
		}
	}
	s.reserved = false

	start := time.Now()
	surface := s.painter.Compose(s.table.Slots(), s.geometry)
	if err := s.win.Present(surface); err != nil {
		return fmt.Errorf("present surface: %w", err)
	}
	s.dirty = false
	s.paints.Add(1)
	s.observer.Painted(time.Since(start))
	return nil
}

// publish stores a copy of the table for Snapshot.
func (s *Scheduler) publish() {
	slots := s.table.Slots()
	s.snapshot.Store(&slots)
	s.observer.Liveness(s.table.Counts())
}

// pump owns producer p: it calls Next until the producer stops or ctx is
// done, handing every result to the reactor.
func (s *Scheduler) pump(ctx context.Context, slot int, p bar.Producer) {
	defer s.wg.Done()
	for {
		b, err := next(ctx, p)
		select {
		case s.results <- result{slot: slot, block: b, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// next calls p.Next and converts a panic into an error.
func next(ctx context.Context, p bar.Producer) (b text.Block, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("widget panicked: %v", r)
		}
	}()
	return p.Next(ctx)
}

func (s *Scheduler) waitProducers() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		s.logger.Warn("widgets did not stop in time", "timeout", s.timeout)
	}
}

type nopObserver struct{}

func (nopObserver) Painted(time.Duration)         {}
func (nopObserver) WidgetUpdated(string)          {}
func (nopObserver) WidgetFailed(string, error)    {}
func (nopObserver) WindowEvent(string)            {}
func (nopObserver) Liveness(map[bar.Liveness]int) {}
