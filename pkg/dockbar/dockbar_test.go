package dockbar

import (
	"context"
	"embed"
	"errors"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/go-dockbar/internal/config"
	"github.com/opd-ai/go-dockbar/internal/render"
	"github.com/opd-ai/go-dockbar/internal/widget"
	"github.com/opd-ai/go-dockbar/internal/window"
)

//go:embed testdata/*
var testFS embed.FS

const twoWidgets = `bar:
  height: 20
widgets:
  - type: text
    text: one
  - type: text
    text: two
    align: right
`

var testOutput = image.Rect(0, 0, 640, 480)

func headlessOptions() *Options {
	return &Options{
		Headless:        true,
		HeadlessOutput:  testOutput,
		ShutdownTimeout: 2 * time.Second,
	}
}

func newHeadless(t *testing.T, cfg string) *dockbarImpl {
	t.Helper()
	b, err := NewFromReader(strings.NewReader(cfg), FormatYAML, headlessOptions())
	if err != nil {
		t.Fatalf("NewFromReader failed: %v", err)
	}
	d := b.(*dockbarImpl)
	t.Cleanup(func() { _ = d.Stop() })
	return d
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func displayOf(t *testing.T, d *dockbarImpl) *window.Headless {
	t.Helper()
	d.mu.RLock()
	s := d.session
	d.mu.RUnlock()
	if s == nil {
		t.Fatal("no session")
	}
	return s.display.(*window.Headless)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func widgetNames(s Status) []string {
	names := make([]string, len(s.Widgets))
	for i, w := range s.Widgets {
		names[i] = w.Name
	}
	return names
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  string
	}{
		{EventStarted, "started"},
		{EventStopped, "stopped"},
		{EventRestarted, "restarted"},
		{EventConfigReloaded, "config_reloaded"},
		{EventError, "error"},
		{EventType(100), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.eventType.String(); got != tt.expected {
				t.Errorf("EventType.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Preview || opts.Headless || opts.WatchConfig {
		t.Errorf("DefaultOptions() enables a mode: %+v", opts)
	}
	if opts.ShutdownTimeout != 0 {
		t.Errorf("ShutdownTimeout = %v, want 0", opts.ShutdownTimeout)
	}
}

func TestNewWithInvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/bar.lua", nil)
	if err == nil {
		t.Fatal("expected error for nonexistent file, got nil")
	}
	var ce *CategorizedError
	if !errors.As(err, &ce) || ce.Category != ErrorCategoryConfig {
		t.Errorf("error = %v, want a config error", err)
	}
}

func TestNewFromReaderWithInvalidFormat(t *testing.T) {
	_, err := NewFromReader(strings.NewReader("bar: {}"), "toml", nil)
	if err == nil {
		t.Fatal("expected error for invalid format, got nil")
	}
	if !strings.Contains(err.Error(), "invalid format") {
		t.Errorf("error should mention invalid format, got: %v", err)
	}
}

func TestNewFromReaderFormats(t *testing.T) {
	tests := []struct {
		file   string
		format Format
	}{
		{"testdata/bar.yaml", FormatYAML},
		{"testdata/bar.lua", FormatLua},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f, err := os.Open(tt.file)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			b, err := NewFromReader(f, tt.format, nil)
			if err != nil {
				t.Fatalf("NewFromReader failed: %v", err)
			}
			if b.IsRunning() {
				t.Error("new instance should not be running")
			}
			if got := b.Status().ConfigSource; got != "reader" {
				t.Errorf("ConfigSource = %q, want reader", got)
			}
		})
	}
}

func TestNewFromFS(t *testing.T) {
	b, err := NewFromFS(testFS, "testdata/bar.lua", nil)
	if err != nil {
		t.Fatalf("NewFromFS failed: %v", err)
	}
	if got := b.Status().ConfigSource; got != "embedded:testdata/bar.lua" {
		t.Errorf("ConfigSource = %q", got)
	}

	if _, err := NewFromFS(testFS, "testdata/missing.lua", nil); err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}

func TestLifecycleHeadless(t *testing.T) {
	d := newHeadless(t, twoWidgets)

	events := make(chan EventType, 16)
	d.SetEventHandler(func(e Event) { events <- e.Type })

	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.IsRunning() {
		t.Fatal("IsRunning() = false after Start")
	}

	disp := displayOf(t, d)
	waitFor(t, "both widgets", func() bool {
		st := d.Status()
		return len(st.Widgets) == 2 && st.Widgets[0].State == "completed" && st.Widgets[1].State == "completed"
	})
	waitFor(t, "a paint", func() bool { return disp.Blits() > 0 })

	if got, want := disp.Rect(), image.Rect(0, 0, 640, 20); got != want {
		t.Errorf("dock rect = %v, want %v", got, want)
	}
	if got := disp.Strut().Top; got != 20 {
		t.Errorf("strut top = %d, want 20", got)
	}

	st := d.Status()
	if st.UpdateCount == 0 {
		t.Error("UpdateCount = 0 after a paint")
	}
	if got := widgetNames(st); strings.Join(got, ",") != "text0,text1" {
		t.Errorf("widgets = %v", got)
	}
	if st.StartTime.IsZero() {
		t.Error("StartTime not set")
	}

	h := d.Health()
	if !h.IsHealthy() {
		t.Errorf("Health() = %s (%s), components %+v", h.Status, h.Message, h.Components)
	}

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if d.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	if err := d.Stop(); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
	if !d.Health().IsUnhealthy() {
		t.Error("stopped bar should be unhealthy")
	}

	seen := map[EventType]bool{}
	waitFor(t, "started and stopped events", func() bool {
		for {
			select {
			case e := <-events:
				seen[e] = true
			default:
				return seen[EventStarted] && seen[EventStopped]
			}
		}
	})

	m := d.Metrics().Snapshot()
	if m.Starts != 1 || m.Stops != 1 || m.Running {
		t.Errorf("metrics = %+v", m)
	}
	if m.Paints == 0 {
		t.Error("no paints recorded")
	}
}

func TestSnapshot(t *testing.T) {
	d := newHeadless(t, twoWidgets)
	if _, err := d.Snapshot(); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("Snapshot() before Start = %v, want ErrNoFrame", err)
	}
	if err := d.Start(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "a paint", func() bool { return d.Status().UpdateCount > 0 })

	img, err := d.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 640, 20) {
		t.Errorf("snapshot bounds = %v", img.Bounds())
	}
	if err := d.Stop(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Snapshot(); err != nil {
		t.Errorf("Snapshot() after Stop = %v", err)
	}
}

func TestDerivedHeightFitsWidgetPadding(t *testing.T) {
	fs, err := render.NewFontManager().NewFontSet(config.DefaultFont, config.DefaultFontSize)
	if err != nil {
		t.Fatal(err)
	}
	defer fs.Close()

	tests := []struct {
		name    string
		padding string
		want    int
	}{
		{"unpadded", "[6, 0]", render.PreferredHeight(fs, config.DefaultBarPadding)},
		{"padded", "[6, 10]", render.PreferredHeight(fs, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newHeadless(t, "widgets:\n  - type: text\n    text: hi\n    padding: "+tt.padding+"\n")
			if err := d.Start(); err != nil {
				t.Fatal(err)
			}
			waitFor(t, "a paint", func() bool { return d.Status().UpdateCount > 0 })
			img, err := d.Snapshot()
			if err != nil {
				t.Fatal(err)
			}
			if got := img.Bounds().Dy(); got != tt.want {
				t.Errorf("bar height = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStartTwice(t *testing.T) {
	d := newHeadless(t, twoWidgets)
	if err := d.Start(); err != nil {
		t.Fatal(err)
	}
	if err := d.Start(); err == nil {
		t.Error("second Start should fail")
	}
	if !d.IsRunning() {
		t.Error("bar stopped after a rejected Start")
	}
	if d.Status().LastError != nil {
		t.Errorf("rejected Start recorded an error: %v", d.Status().LastError)
	}
}

func TestStartFailureIsCategorized(t *testing.T) {
	cfg := `widgets:
  - type: file
    path: /nonexistent/dir/status
`
	d := newHeadless(t, cfg)
	err := d.Start()
	if err == nil {
		t.Fatal("Start should fail when a widget cannot be built")
	}
	var ce *CategorizedError
	if !errors.As(err, &ce) || ce.Category != ErrorCategoryWidget {
		t.Fatalf("error = %v, want a widget error", err)
	}
	if d.IsRunning() {
		t.Error("IsRunning() = true after failed Start")
	}
	if got := d.Status().LastError; !errors.Is(got, ce) {
		t.Errorf("LastError = %v", got)
	}
	if got := d.Metrics().Snapshot().Errors["widget"]; got != 1 {
		t.Errorf("widget errors = %d, want 1", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	d := newHeadless(t, twoWidgets)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	waitFor(t, "running", d.IsRunning)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if d.IsRunning() {
		t.Error("still running after Run returned")
	}
}

func TestRunEndsWhenWindowDestroyed(t *testing.T) {
	d := newHeadless(t, twoWidgets)
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	waitFor(t, "running", d.IsRunning)
	displayOf(t, d).Destroy()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the window was destroyed")
	}
}

func TestRunSurvivesRestart(t *testing.T) {
	d := newHeadless(t, twoWidgets)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	waitFor(t, "running", d.IsRunning)
	first := d.Status().SessionID
	if err := d.Restart(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if second := d.Status().SessionID; first == "" || second == "" || first == second {
		t.Errorf("session IDs %q and %q, want two distinct IDs", first, second)
	}

	select {
	case err := <-done:
		t.Fatalf("Run returned after a restart: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	if !d.IsRunning() {
		t.Fatal("not running after Restart")
	}
	if got := d.Metrics().Snapshot().Restarts; got != 1 {
		t.Errorf("restarts = %d, want 1", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// fakeDesktop is a widget.Desktop the test can close.
type fakeDesktop struct {
	changes chan struct{}
	once    sync.Once
}

func newFakeDesktop() *fakeDesktop {
	d := &fakeDesktop{changes: make(chan struct{}, 1)}
	d.changes <- struct{}{}
	return d
}

func (f *fakeDesktop) Changes() <-chan struct{}      { return f.changes }
func (f *fakeDesktop) ActiveTitle() (string, error) { return "terminal", nil }
func (f *fakeDesktop) Desktops() (widget.DesktopState, error) {
	return widget.DesktopState{Count: 2, Names: []string{"1", "2"}}, nil
}
func (f *fakeDesktop) Close() error {
	f.once.Do(func() { close(f.changes) })
	return nil
}

func TestWidgetFailureIsIsolated(t *testing.T) {
	cfg := `widgets:
  - type: title
  - type: text
    text: still here
    align: right
`
	d := newHeadless(t, cfg)
	desktop := newFakeDesktop()
	d.dial = func(string, *slog.Logger) (widget.Desktop, error) { return desktop, nil }

	errs := make(chan error, 4)
	d.SetErrorHandler(func(err error) { errs <- err })

	if err := d.Start(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "title", func() bool {
		st := d.Status()
		return len(st.Widgets) == 2 && st.Widgets[0].State == "active"
	})

	desktop.Close()

	var err error
	select {
	case err = <-errs:
	case <-time.After(5 * time.Second):
		t.Fatal("no error reported for the failed widget")
	}
	var ce *CategorizedError
	if !errors.As(err, &ce) {
		t.Fatalf("error %v is not categorized", err)
	}
	if ce.Category != ErrorCategoryWidget || ce.Severity != SeverityWarning || ce.Context["widget"] != "title0" {
		t.Errorf("error = %+v", ce)
	}
	if !errors.Is(err, widget.ErrDesktopClosed) {
		t.Errorf("error %v does not wrap the widget failure", err)
	}
	if got, want := ce.Context["session"], d.Status().SessionID.String(); got != want {
		t.Errorf("session = %q, want %q", got, want)
	}

	if !d.IsRunning() {
		t.Fatal("a widget failure stopped the bar")
	}
	st := d.Status()
	if st.Widgets[0].State != "failed" || st.Widgets[0].Err == nil {
		t.Errorf("title status = %+v", st.Widgets[0])
	}
	if st.Widgets[1].State != "completed" {
		t.Errorf("text status = %+v", st.Widgets[1])
	}

	h := d.Health()
	if !h.IsDegraded() {
		t.Errorf("Health() = %s, want degraded", h.Status)
	}
	if msg := h.Components["widgets"].Message; !strings.Contains(msg, "title0") {
		t.Errorf("widgets health = %q", msg)
	}
	if got := d.Metrics().Snapshot().WidgetFailures["title0"]; got != 1 {
		t.Errorf("widget failures = %d, want 1", got)
	}
}

func TestReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bar.yaml")
	writeConfig(t, path, "widgets:\n  - type: text\n    text: one\n")

	b, err := New(path, headlessOptions())
	if err != nil {
		t.Fatal(err)
	}
	d := b.(*dockbarImpl)
	t.Cleanup(func() { _ = d.Stop() })

	if err := d.ReloadConfig(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("ReloadConfig() before Start = %v, want ErrNotRunning", err)
	}

	if err := d.Start(); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, path, twoWidgets)
	if err := d.ReloadConfig(); err != nil {
		t.Fatalf("ReloadConfig failed: %v", err)
	}
	if got := widgetNames(d.Status()); len(got) != 2 {
		t.Fatalf("widgets after reload = %v", got)
	}

	writeConfig(t, path, "widgets:\n  - type: weather\n")
	err = d.ReloadConfig()
	var ce *CategorizedError
	if !errors.As(err, &ce) || ce.Category != ErrorCategoryConfig {
		t.Fatalf("ReloadConfig() with a bad file = %v, want a config error", err)
	}
	if !d.IsRunning() {
		t.Fatal("a rejected reload stopped the bar")
	}
	if got := widgetNames(d.Status()); len(got) != 2 {
		t.Errorf("widgets after rejected reload = %v", got)
	}
	if got := d.Metrics().Snapshot().ConfigReloads; got != 1 {
		t.Errorf("config reloads = %d, want 1", got)
	}
}

func TestRestartWithBrokenConfigStaysStopped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bar.yaml")
	writeConfig(t, path, twoWidgets)

	b, err := New(path, headlessOptions())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Stop() })
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}

	writeConfig(t, path, "bar: [not, a, mapping]\n")
	if err := b.Restart(); err == nil {
		t.Fatal("Restart with a broken config should fail")
	}
	if b.IsRunning() {
		t.Error("instance should stay stopped after a failed restart")
	}
}

func TestWatchConfigReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bar.yaml")
	writeConfig(t, path, "widgets:\n  - type: text\n    text: one\n")

	opts := headlessOptions()
	opts.WatchConfig = true
	opts.WatchDebounce = 50 * time.Millisecond
	b, err := New(path, opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Stop() })
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}

	writeConfig(t, path, twoWidgets)
	waitFor(t, "the reloaded widgets", func() bool {
		return b.IsRunning() && len(b.Status().Widgets) == 2
	})
}

func TestHandlerPanicsAreRecovered(t *testing.T) {
	d := newHeadless(t, "widgets:\n  - type: file\n    path: /nonexistent/dir/x\n")
	called := make(chan struct{}, 2)
	d.SetErrorHandler(func(error) {
		called <- struct{}{}
		panic("handler bug")
	})
	d.SetEventHandler(func(Event) {
		called <- struct{}{}
		panic("handler bug")
	})

	_ = d.Start()
	for range 2 {
		select {
		case <-called:
		case <-time.After(5 * time.Second):
			t.Fatal("handler not called")
		}
	}
}
