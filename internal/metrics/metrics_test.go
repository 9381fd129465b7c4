package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-dockbar/internal/bar"
)

func TestObserverCounters(t *testing.T) {
	m := New()

	m.Painted(2 * time.Millisecond)
	m.Painted(4 * time.Millisecond)
	m.WidgetUpdated("clock")
	m.WidgetUpdated("clock")
	m.WidgetUpdated("title")
	m.WidgetFailed("weather", errors.New("timeout"))
	m.WindowEvent("expose")
	m.Liveness(map[bar.Liveness]int{bar.Active: 2, bar.Failed: 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.paints))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.widgetUpdates.WithLabelValues("clock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.widgetFailures.WithLabelValues("weather")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.windowEvents.WithLabelValues("expose")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.slots.WithLabelValues("pending")))

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Paints)
	assert.Equal(t, 3*time.Millisecond, s.PaintDurationAvg.Round(time.Millisecond))
	assert.Equal(t, map[string]int64{"clock": 2, "title": 1}, s.WidgetUpdates)
	assert.Equal(t, map[string]int64{"weather": 1}, s.WidgetFailures)
	assert.Equal(t, map[string]int64{"expose": 1}, s.WindowEvents)
	assert.Equal(t, map[string]int{"pending": 0, "active": 2, "failed": 1, "completed": 0}, s.Slots)
}

func TestLifecycleCounters(t *testing.T) {
	m := New()

	m.IncrementStarts()
	m.IncrementStops()
	m.IncrementRestarts()
	m.IncrementConfigReloads()
	m.IncrementConfigReloads()
	m.IncrementErrors("window")
	m.SetRunning(true)

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.Starts)
	assert.Equal(t, int64(1), s.Stops)
	assert.Equal(t, int64(1), s.Restarts)
	assert.Equal(t, int64(2), s.ConfigReloads)
	assert.Equal(t, map[string]int64{"window": 1}, s.Errors)
	assert.True(t, s.Running)

	m.SetRunning(false)
	assert.False(t, m.Snapshot().Running)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Painted(time.Millisecond)
	assert.Equal(t, int64(1), a.Snapshot().Paints)
	assert.Equal(t, int64(0), b.Snapshot().Paints)
}

func TestHandler(t *testing.T) {
	m := New()
	m.WidgetUpdated("clock")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `dockbar_widget_updates_total{widget="clock"} 1`)
	assert.Contains(t, body, "dockbar_paint_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}

func TestServe(t *testing.T) {
	m := New()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.serve(ctx, ln, nil) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "dockbar_paints_total"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeBadAddress(t *testing.T) {
	err := New().Serve(context.Background(), "256.0.0.1:bad", nil)
	assert.Error(t, err)
}
