// Package metrics collects dockbar-go runtime metrics on a private
// Prometheus registry and serves them over HTTP.
//
// A Metrics value doubles as the scheduler's observer, so paint, widget and
// window activity is counted without the scheduler knowing about Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/opd-ai/go-dockbar/internal/bar"
)

const namespace = "dockbar"

// Metrics holds the bar's collectors. It is safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	starts        prometheus.Counter
	stops         prometheus.Counter
	restarts      prometheus.Counter
	configReloads prometheus.Counter
	errors        *prometheus.CounterVec
	running       prometheus.Gauge

	paints         prometheus.Counter
	paintDuration  prometheus.Histogram
	widgetUpdates  *prometheus.CounterVec
	widgetFailures *prometheus.CounterVec
	windowEvents   *prometheus.CounterVec
	slots          *prometheus.GaugeVec
}

// New creates a Metrics with its own registry. Go runtime and process
// collectors are registered alongside the bar's own metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		starts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "starts_total",
			Help:      "Total number of bar starts.",
		}),
		stops: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stops_total",
			Help:      "Total number of bar stops.",
		}),
		restarts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Total number of bar restarts.",
		}),
		configReloads: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Total number of successful configuration reloads.",
		}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of reported errors by category.",
		}, []string{"category"}),
		running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "1 while the bar is running.",
		}),
		paints: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paints_total",
			Help:      "Total number of surfaces composed and presented.",
		}),
		paintDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "paint_duration_seconds",
			Help:      "Time spent composing and presenting one surface.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		widgetUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "widget_updates_total",
			Help:      "Total number of blocks received per widget.",
		}, []string{"widget"}),
		widgetFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "widget_failures_total",
			Help:      "Total number of widget failures.",
		}, []string{"widget"}),
		windowEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_events_total",
			Help:      "Total number of window events handled by kind.",
		}, []string{"kind"}),
		slots: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slots",
			Help:      "Number of widget slots by liveness.",
		}, []string{"liveness"}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncrementStarts records a start.
func (m *Metrics) IncrementStarts() { m.starts.Inc() }

// IncrementStops records a stop.
func (m *Metrics) IncrementStops() { m.stops.Inc() }

// IncrementRestarts records a restart.
func (m *Metrics) IncrementRestarts() { m.restarts.Inc() }

// IncrementConfigReloads records a successful configuration reload.
func (m *Metrics) IncrementConfigReloads() { m.configReloads.Inc() }

// IncrementErrors records an error of the given category.
func (m *Metrics) IncrementErrors(category string) { m.errors.WithLabelValues(category).Inc() }

// SetRunning sets the running gauge.
func (m *Metrics) SetRunning(running bool) {
	if running {
		m.running.Set(1)
		return
	}
	m.running.Set(0)
}

// Painted records one paint and how long it took.
func (m *Metrics) Painted(d time.Duration) {
	m.paints.Inc()
	m.paintDuration.Observe(d.Seconds())
}

// WidgetUpdated records a block received from a widget.
func (m *Metrics) WidgetUpdated(name string) { m.widgetUpdates.WithLabelValues(name).Inc() }

// WidgetFailed records a widget failure.
func (m *Metrics) WidgetFailed(name string, _ error) { m.widgetFailures.WithLabelValues(name).Inc() }

// WindowEvent records a handled window event.
func (m *Metrics) WindowEvent(kind string) { m.windowEvents.WithLabelValues(kind).Inc() }

// Liveness replaces the slot gauges with counts.
func (m *Metrics) Liveness(counts map[bar.Liveness]int) {
	for _, l := range []bar.Liveness{bar.Pending, bar.Active, bar.Failed, bar.Completed} {
		m.slots.WithLabelValues(l.String()).Set(float64(counts[l]))
	}
}
