package metrics

import (
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// Snapshot is a point-in-time copy of the bar's own metrics.
type Snapshot struct {
	Starts        int64
	Stops         int64
	Restarts      int64
	ConfigReloads int64
	Running       bool

	// Errors counts reported errors by category.
	Errors map[string]int64

	Paints           int64
	PaintDurationAvg time.Duration

	// WidgetUpdates and WidgetFailures are keyed by widget name.
	WidgetUpdates  map[string]int64
	WidgetFailures map[string]int64
	// WindowEvents is keyed by event kind.
	WindowEvents map[string]int64
	// Slots is keyed by liveness.
	Slots map[string]int
}

// Snapshot gathers the registry and copies the dockbar metrics out of it.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Errors:         map[string]int64{},
		WidgetUpdates:  map[string]int64{},
		WidgetFailures: map[string]int64{},
		WindowEvents:   map[string]int64{},
		Slots:          map[string]int{},
	}

	families, err := m.registry.Gather()
	if err != nil {
		return s
	}
	for _, mf := range families {
		name, ok := strings.CutPrefix(mf.GetName(), namespace+"_")
		if !ok {
			continue
		}
		for _, metric := range mf.GetMetric() {
			s.record(name, metric)
		}
	}
	return s
}

func (s *Snapshot) record(name string, metric *dto.Metric) {
	counter := int64(metric.GetCounter().GetValue())
	switch name {
	case "starts_total":
		s.Starts = counter
	case "stops_total":
		s.Stops = counter
	case "restarts_total":
		s.Restarts = counter
	case "config_reloads_total":
		s.ConfigReloads = counter
	case "running":
		s.Running = metric.GetGauge().GetValue() > 0
	case "errors_total":
		s.Errors[label(metric, "category")] = counter
	case "paints_total":
		s.Paints = counter
	case "paint_duration_seconds":
		h := metric.GetHistogram()
		if n := h.GetSampleCount(); n > 0 {
			s.PaintDurationAvg = time.Duration(h.GetSampleSum() / float64(n) * float64(time.Second))
		}
	case "widget_updates_total":
		s.WidgetUpdates[label(metric, "widget")] = counter
	case "widget_failures_total":
		s.WidgetFailures[label(metric, "widget")] = counter
	case "window_events_total":
		s.WindowEvents[label(metric, "kind")] = counter
	case "slots":
		s.Slots[label(metric, "liveness")] = int(metric.GetGauge().GetValue())
	}
}

func label(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
