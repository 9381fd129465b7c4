package dockbar

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-dockbar/internal/bar"
	"github.com/opd-ai/go-dockbar/internal/config"
	"github.com/opd-ai/go-dockbar/internal/render"
	"github.com/opd-ai/go-dockbar/internal/scheduler"
	"github.com/opd-ai/go-dockbar/internal/text"
	"github.com/opd-ai/go-dockbar/internal/widget"
	"github.com/opd-ai/go-dockbar/internal/window"
)

// dockbarImpl is the private implementation of the Dockbar interface.
type dockbarImpl struct {
	// Configuration
	cfg          *config.Config
	opts         Options
	configSource string
	configPath   string
	configLoader func() (*config.Config, error)

	logger  *slog.Logger
	metrics *Metrics
	tracker *ErrorTracker
	// dial opens the desktop source of title and pager widgets.
	// Nil means the X server of the bar's display.
	dial func(display string, logger *slog.Logger) (widget.Desktop, error)

	// lifecycle serializes Start, Stop, Restart and ReloadConfig.
	lifecycle sync.Mutex

	// State
	running   atomic.Bool
	lastError atomic.Value // stores *CategorizedError

	mu           sync.RWMutex
	session      *session
	startTime    time.Time
	watcher      *configWatcher
	errorHandler ErrorHandler
	eventHandler EventHandler
}

// Verify interface implementation at compile time.
var _ Dockbar = (*dockbarImpl)(nil)

var errAlreadyRunning = errors.New("dockbar instance already running")

// session is one run of the bar, from Start to the scheduler returning.
type session struct {
	id         SessionID
	logger     *slog.Logger
	cancel     context.CancelFunc
	done       chan struct{}
	sched      *scheduler.Scheduler
	layer      *window.Layer
	display    window.Display
	runDisplay func(context.Context) error
	producers  []bar.Producer
	fonts      *render.FontSet

	// err is set before done is closed.
	err error
	// replaced marks a session stopped by a restart or reload.
	replaced atomic.Bool
}

func newImpl(cfg *config.Config, source string, load func() (*config.Config, error), opts Options) *dockbarImpl {
	d := &dockbarImpl{
		cfg:          cfg,
		opts:         opts,
		configSource: source,
		configLoader: load,
		logger:       slogOf(opts.Logger),
		metrics:      opts.Metrics,
		tracker:      opts.ErrorTracker,
	}
	if d.metrics == nil {
		d.metrics = NewMetrics()
	}
	if d.tracker == nil {
		d.tracker = NewErrorTracker(DefaultErrorTrackerConfig())
	}
	return d
}

// Start docks the bar and starts its widgets.
func (d *dockbarImpl) Start() error {
	d.lifecycle.Lock()
	err := d.start()
	d.lifecycle.Unlock()
	if err != nil {
		if !errors.Is(err, errAlreadyRunning) {
			d.notifyError(err)
		}
		return err
	}

	d.startWatcher()
	d.emitEvent(EventStarted, "Bar started")
	return nil
}

func (d *dockbarImpl) start() error {
	if d.running.Load() {
		return errAlreadyRunning
	}

	d.mu.RLock()
	cfg := d.cfg
	d.mu.RUnlock()

	s, err := d.build(cfg)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.session = s
	d.startTime = time.Now()
	d.mu.Unlock()

	// Set running state BEFORE starting goroutine to avoid race
	d.running.Store(true)
	d.metrics.IncrementStarts()
	d.metrics.SetRunning(true)

	ctx, cancel := context.WithCancel(WithSessionID(context.Background(), s.id))
	s.cancel = cancel
	go d.serve(ctx, s)
	return nil
}

// build assembles every component of a session. Nothing is left open when
// it fails.
func (d *dockbarImpl) build(cfg *config.Config) (_ *session, err error) {
	result := config.NewValidator().Validate(cfg)
	if err := result.Error(); err != nil {
		return nil, NewCategorizedError(err, ErrorCategoryConfig, SeverityCritical)
	}

	id := newSessionID()
	s := &session{
		id:     id,
		logger: d.logger.With("session", id.String()),
		done:   make(chan struct{}),
	}
	for _, w := range result.Warnings {
		s.logger.Warn("configuration warning", "field", w.Field, "message", w.Message)
	}
	defer func() {
		if err != nil {
			s.release()
		}
	}()

	fm := render.NewFontManager()
	if cfg.Bar.FontFile != "" {
		if err := fm.LoadFontFromFile(cfg.Bar.Font, text.StyleRegular, cfg.Bar.FontFile); err != nil {
			return nil, NewCategorizedError(err, ErrorCategoryRender, SeverityCritical)
		}
	}
	s.fonts, err = fm.NewFontSet(cfg.Bar.Font, cfg.Bar.FontSize)
	if err != nil {
		return nil, NewCategorizedError(fmt.Errorf("load fonts: %w", err), ErrorCategoryRender, SeverityCritical)
	}

	height := cfg.Bar.Height
	if height <= 0 {
		height = render.PreferredHeight(s.fonts, max(config.DefaultBarPadding, cfg.MaxVerticalPadding()))
	}

	s.display, s.runDisplay, err = d.openDisplay(cfg, s.logger)
	if err != nil {
		return nil, NewCategorizedError(err, ErrorCategoryWindow, SeverityCritical)
	}
	if warning := window.TransparencyWarning(s.display, cfg.Bar.Background.A); warning != "" {
		s.logger.Warn(warning)
	}

	s.layer = window.NewLayer(s.display, window.Placement{
		Position: cfg.Bar.Position,
		Width:    cfg.Bar.Width,
		Height:   height,
		OffsetX:  cfg.Bar.OffsetX,
		OffsetY:  cfg.Bar.OffsetY,
	}, s.logger)
	if err := s.layer.Open(context.Background()); err != nil {
		return nil, NewCategorizedError(err, ErrorCategoryWindow, SeverityCritical)
	}

	s.producers, err = widget.BuildAll(cfg.Widgets, widget.Env{
		Logger:  s.logger,
		Display: cfg.Bar.Display,
		Dial:    d.dial,
	})
	if err != nil {
		return nil, NewCategorizedError(err, ErrorCategoryWidget, SeverityCritical)
	}

	coalesce, paintRate := cfg.Bar.CoalesceWindow, cfg.Bar.MaxPaintRate
	if d.opts.CoalesceWindow > 0 {
		coalesce = d.opts.CoalesceWindow
	}
	if d.opts.MaxPaintRate > 0 {
		paintRate = d.opts.MaxPaintRate
	}
	s.sched, err = scheduler.New(scheduler.Config{
		Table:          bar.NewTable(cfg.SlotSpecs()),
		Producers:      s.producers,
		Painter:        render.NewCompositor(s.fonts, cfg.Bar.Background, s.logger),
		Window:         s.layer,
		Logger:         s.logger,
		Observer:       observer{Metrics: d.metrics, d: d, session: id},
		CoalesceWindow: coalesce,
		MaxPaintRate:   paintRate,
	})
	if err != nil {
		return nil, NewCategorizedError(err, ErrorCategoryUnknown, SeverityCritical)
	}

	s.logger.Info("bar docked", "geometry", s.layer.Geometry().String(), "widgets", len(s.producers))
	return s, nil
}

// openDisplay picks the display backend selected by the options.
func (d *dockbarImpl) openDisplay(cfg *config.Config, logger *slog.Logger) (window.Display, func(context.Context) error, error) {
	switch {
	case d.opts.Headless:
		return window.NewHeadless(d.opts.HeadlessOutput), nil, nil
	case d.opts.Preview:
		return newPreviewDisplay(d.opts.HeadlessOutput)
	default:
		x, err := window.NewX11Display(cfg.Bar.Display, cfg.Bar.Head, logger)
		if err != nil {
			return nil, nil, err
		}
		return x, nil, nil
	}
}

// serve runs the scheduler of s until it stops, then releases the session.
func (d *dockbarImpl) serve(ctx context.Context, s *session) {
	defer close(s.done)

	var wg sync.WaitGroup
	if s.runDisplay != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.runDisplay(ctx); err != nil {
				ce := NewCategorizedError(fmt.Errorf("display loop: %w", err), ErrorCategoryWindow, SeverityError)
				d.notifyError(ce.WithContext("session", s.id.String()))
			}
		}()
	}

	err := s.sched.Run(ctx)
	s.release()
	wg.Wait()

	d.running.Store(false)
	d.metrics.SetRunning(false)
	if err != nil {
		ce := NewCategorizedError(fmt.Errorf("bar stopped: %w", err), ErrorCategoryWindow, SeverityCritical)
		s.err = ce.WithContext("session", s.id.String())
		d.notifyError(s.err)
	}
	d.emitEvent(EventStopped, "Bar stopped")
}

// release closes everything the session opened.
func (s *session) release() {
	_ = widget.CloseAll(s.producers)
	if s.layer != nil {
		_ = s.layer.Close()
	} else if s.display != nil {
		_ = s.display.Close()
	}
	if s.fonts != nil {
		_ = s.fonts.Close()
	}
}

// Stop shuts the bar down and waits for it.
func (d *dockbarImpl) Stop() error {
	d.stopWatcher()

	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	return d.stop(false)
}

func (d *dockbarImpl) stop(replaced bool) error {
	d.mu.RLock()
	s := d.session
	d.mu.RUnlock()
	if s == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	default:
	}

	s.replaced.Store(replaced)
	s.cancel()

	timeout := d.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.done:
		d.metrics.IncrementStops()
		return nil
	case <-timer.C:
		err := fmt.Errorf("shutdown timeout after %v: some goroutines did not stop", timeout)
		d.notifyError(err)
		return err
	}
}

// Restart stops the bar, reloads its configuration and starts it again.
func (d *dockbarImpl) Restart() error {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()

	if err := d.stop(true); err != nil {
		return fmt.Errorf("stop failed: %w", err)
	}

	cfg, err := d.configLoader()
	if err != nil {
		wrapped := NewCategorizedError(fmt.Errorf("config reload failed: %w", err), ErrorCategoryConfig, SeverityError)
		d.notifyError(wrapped)
		return wrapped
	}
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
	d.emitEvent(EventConfigReloaded, "Configuration reloaded")

	if err := d.start(); err != nil {
		wrapped := fmt.Errorf("start failed: %w", err)
		d.notifyError(categorize(wrapped, ErrorCategoryUnknown, SeverityCritical))
		return wrapped
	}

	d.metrics.IncrementRestarts()
	d.emitEvent(EventRestarted, "Bar restarted")
	return nil
}

// ReloadConfig replaces the running bar with one built from a fresh copy of
// the configuration. A configuration that fails to load or validate is
// rejected before the running bar is touched; if the new bar cannot start,
// the previous configuration is started again.
func (d *dockbarImpl) ReloadConfig() error {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()

	if !d.running.Load() {
		return ErrNotRunning
	}

	cfg, err := d.configLoader()
	if err == nil {
		err = config.ValidateConfig(cfg)
	}
	if err != nil {
		wrapped := NewCategorizedError(fmt.Errorf("config reload failed: %w", err), ErrorCategoryConfig, SeverityError)
		d.notifyError(wrapped)
		return wrapped
	}

	if err := d.stop(true); err != nil {
		return fmt.Errorf("stop failed: %w", err)
	}

	d.mu.Lock()
	previous := d.cfg
	d.cfg = cfg
	d.mu.Unlock()

	if err := d.start(); err != nil {
		d.notifyError(err)
		d.mu.Lock()
		d.cfg = previous
		d.mu.Unlock()
		if rerr := d.start(); rerr != nil {
			d.notifyError(rerr)
		}
		return fmt.Errorf("start with reloaded config: %w", err)
	}

	d.metrics.IncrementConfigReloads()
	d.emitEvent(EventConfigReloaded, "Configuration reloaded")
	return nil
}

// Run starts the bar and waits for ctx or for the bar to stop by itself.
func (d *dockbarImpl) Run(ctx context.Context) error {
	if err := d.Start(); err != nil {
		return err
	}
	for {
		d.mu.RLock()
		s := d.session
		d.mu.RUnlock()

		select {
		case <-ctx.Done():
			return d.Stop()
		case <-s.done:
		}

		if !s.replaced.Load() {
			_ = d.Stop()
			return s.err
		}

		// A restart or reload is in progress; it holds the lifecycle lock
		// until the next session is running or has failed to start.
		d.lifecycle.Lock()
		running := d.running.Load()
		d.lifecycle.Unlock()
		if !running {
			_ = d.Stop()
			if err := d.getError(); err != nil {
				return err
			}
			return errors.New("bar did not come back after a restart")
		}
	}
}

// IsRunning returns true if the bar is currently running.
func (d *dockbarImpl) IsRunning() bool {
	return d.running.Load()
}

// Status returns detailed status information about the instance.
func (d *dockbarImpl) Status() Status {
	d.mu.RLock()
	s := d.session
	startTime := d.startTime
	configSource := d.configSource
	d.mu.RUnlock()

	st := Status{
		Running:      d.running.Load(),
		StartTime:    startTime,
		LastError:    d.getError(),
		ConfigSource: configSource,
	}
	if s != nil {
		st.SessionID = s.id
		st.UpdateCount = s.sched.Paints()
		for _, slot := range s.sched.Snapshot() {
			st.Widgets = append(st.Widgets, WidgetStatus{
				Name:       slot.Name,
				State:      slot.Liveness.String(),
				Updates:    slot.Updates,
				LastUpdate: slot.LastUpdate,
				Err:        slot.Reason,
			})
		}
	}
	return st
}

// SetErrorHandler registers a callback for runtime errors.
func (d *dockbarImpl) SetErrorHandler(handler ErrorHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errorHandler = handler
}

// SetEventHandler registers a callback for lifecycle events.
func (d *dockbarImpl) SetEventHandler(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.eventHandler = handler
}

// startWatcher watches the configuration file when asked to. The watcher
// outlives restarts and is only stopped by Stop.
func (d *dockbarImpl) startWatcher() {
	if !d.opts.WatchConfig || d.configPath == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.watcher != nil {
		return
	}

	w, err := newConfigWatcher(d.configPath, d.opts.WatchDebounce, d.ReloadConfig, func(err error) {
		var ce *CategorizedError
		switch {
		case errors.Is(err, ErrNotRunning):
			d.logger.Debug("configuration changed while the bar is stopped")
		case errors.As(err, &ce):
			// Already reported by ReloadConfig.
		default:
			go d.notifyError(NewCategorizedError(fmt.Errorf("watch config: %w", err), ErrorCategoryIO, SeverityWarning))
		}
	})
	if err != nil {
		go d.notifyError(NewCategorizedError(err, ErrorCategoryIO, SeverityWarning))
		return
	}
	d.watcher = w
	d.logger.Debug("watching configuration", "path", d.configPath)
}

func (d *dockbarImpl) stopWatcher() {
	d.mu.Lock()
	w := d.watcher
	d.watcher = nil
	d.mu.Unlock()
	if w != nil {
		w.Stop()
	}
}

// getError retrieves the last error.
func (d *dockbarImpl) getError() error {
	if ce, ok := d.lastError.Load().(*CategorizedError); ok && ce != nil {
		return ce
	}
	return nil
}

// notifyError records err, logs it and invokes the error handler if one is
// registered.
func (d *dockbarImpl) notifyError(err error) {
	ce := categorize(err, ErrorCategoryUnknown, SeverityError)
	d.lastError.Store(ce)
	d.metrics.IncrementErrors(ce.Category.String())
	d.tracker.Record(ce)

	args := []any{"category", ce.Category.String(), "error", ce.Err}
	for k, v := range ce.Context {
		args = append(args, k, v)
	}
	switch ce.Severity {
	case SeverityInfo:
		d.logger.Info("dockbar error", args...)
	case SeverityWarning:
		d.logger.Warn("dockbar error", args...)
	default:
		d.logger.Error("dockbar error", args...)
	}

	d.mu.RLock()
	handler := d.errorHandler
	d.mu.RUnlock()

	if handler != nil {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("error handler panicked", "panic", r, "original_error", ce)
				}
			}()
			handler(ce)
		}()
	}

	d.emitEvent(EventError, ce.Error())
}

// emitEvent sends an event to the event handler if configured.
func (d *dockbarImpl) emitEvent(eventType EventType, message string) {
	d.mu.RLock()
	handler := d.eventHandler
	var id SessionID
	if d.session != nil {
		id = d.session.id
	}
	d.mu.RUnlock()
	if handler == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("event handler panicked", "panic", r, "event", eventType.String())
			}
		}()
		handler(Event{
			Type:      eventType,
			Timestamp: time.Now(),
			Message:   message,
			SessionID: id,
		})
	}()
}

// Health returns a health check result for the instance.
func (d *dockbarImpl) Health() HealthCheck {
	now := time.Now()
	running := d.running.Load()

	d.mu.RLock()
	s := d.session
	var uptime time.Duration
	if running && !d.startTime.IsZero() {
		uptime = now.Sub(d.startTime)
	}
	d.mu.RUnlock()

	components := map[string]ComponentHealth{
		"instance": {Status: HealthOK, Message: "Bar is running", LastUpdated: now},
		"window":   windowHealth(s, running, now),
		"widgets":  widgetHealth(s, running, now),
		"errors":   {Status: HealthOK, Message: "No recent errors", LastUpdated: now},
	}
	if !running {
		components["instance"] = ComponentHealth{Status: HealthUnhealthy, Message: "Bar is not running", LastUpdated: now}
	}
	lastErr := d.getError()
	if lastErr != nil {
		components["errors"] = ComponentHealth{Status: HealthDegraded, Message: lastErr.Error(), LastUpdated: now}
	}

	status := worst(components["window"].Status, components["widgets"].Status, components["errors"].Status)
	var message string
	switch {
	case !running:
		status = HealthUnhealthy
		message = "Bar is not running"
	case status == HealthOK:
		message = "All components healthy"
	case lastErr != nil:
		message = "Running with recent errors"
	default:
		message = "Running with degraded components"
	}

	return HealthCheck{
		Status:     status,
		Timestamp:  now,
		Uptime:     uptime,
		Components: components,
		Message:    message,
	}
}

func windowHealth(s *session, running bool, now time.Time) ComponentHealth {
	if s == nil {
		return ComponentHealth{Status: HealthUnhealthy, Message: "No dock window created", LastUpdated: now}
	}
	if state := s.layer.State(); !running || state != window.StateRunning {
		return ComponentHealth{Status: HealthUnhealthy, Message: "Dock window is " + state.String(), LastUpdated: now}
	}
	return ComponentHealth{Status: HealthOK, Message: "Docked at " + s.layer.Geometry().String(), LastUpdated: now}
}

func widgetHealth(s *session, running bool, now time.Time) ComponentHealth {
	if s == nil || !running {
		return ComponentHealth{Status: HealthUnhealthy, Message: "Widgets are not running", LastUpdated: now}
	}
	slots := s.sched.Snapshot()
	var failed []string
	for _, slot := range slots {
		if slot.Liveness == bar.Failed {
			failed = append(failed, slot.Name)
		}
	}
	if len(failed) > 0 {
		return ComponentHealth{
			Status:      HealthDegraded,
			Message:     fmt.Sprintf("%d of %d widgets failed: %s", len(failed), len(slots), strings.Join(failed, ", ")),
			LastUpdated: now,
		}
	}
	return ComponentHealth{Status: HealthOK, Message: fmt.Sprintf("%d widgets running", len(slots)), LastUpdated: now}
}

// Metrics returns the metrics collector for this instance.
func (d *dockbarImpl) Metrics() *Metrics {
	return d.metrics
}

// Snapshot returns the last frame painted by the current or last session.
func (d *dockbarImpl) Snapshot() (*image.RGBA, error) {
	d.mu.RLock()
	s := d.session
	d.mu.RUnlock()
	if s == nil || s.layer == nil {
		return nil, ErrNoFrame
	}
	img := s.layer.Snapshot()
	if img == nil {
		return nil, ErrNoFrame
	}
	return img, nil
}

// observer feeds scheduler notifications to the metrics and reports widget
// failures as warnings.
type observer struct {
	*Metrics
	d       *dockbarImpl
	session SessionID
}

func (o observer) WidgetFailed(name string, reason error) {
	o.Metrics.WidgetFailed(name, reason)
	ce := NewCategorizedError(fmt.Errorf("widget %s: %w", name, reason), ErrorCategoryWidget, SeverityWarning)
	o.d.notifyError(ce.WithContext("widget", name).WithContext("session", o.session.String()))
}
