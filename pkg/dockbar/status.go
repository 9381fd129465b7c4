package dockbar

import "time"

// Status represents the current state of a Dockbar instance.
type Status struct {
	// Running indicates if the instance is currently active.
	Running bool
	// StartTime is when the instance was last started (zero if never started).
	StartTime time.Time
	// UpdateCount is the number of surfaces painted since the last start.
	UpdateCount uint64
	// LastError is the most recent error encountered (nil if none).
	LastError error
	// ConfigSource describes the configuration source (file path,
	// "embedded:" path or "reader").
	ConfigSource string
	// SessionID identifies the current or last session.
	SessionID SessionID
	// Widgets describes every widget slot, in bar order.
	Widgets []WidgetStatus
}

// WidgetStatus describes one widget slot.
type WidgetStatus struct {
	Name string
	// State is one of pending, active, failed or completed.
	State      string
	Updates    uint64
	LastUpdate time.Time
	// Err is why the widget failed.
	Err error
}

// ErrorHandler is a callback for runtime errors.
// It runs on its own goroutine for every reported error, including widget
// failures; errors are always a *CategorizedError.
type ErrorHandler func(err error)

// EventHandler is a callback for lifecycle events. Like ErrorHandler it runs
// on its own goroutine, so events may arrive out of order.
type EventHandler func(event Event)

// Event is a change in the bar's lifecycle.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Message   string
	// SessionID is the session the event belongs to; empty before the
	// first start.
	SessionID SessionID
}

// EventType enumerates lifecycle event types.
type EventType int

const (
	// EventStarted is emitted when the bar is on screen.
	EventStarted EventType = iota
	// EventStopped is emitted when the bar stops, for whatever reason.
	EventStopped
	// EventRestarted is emitted after a successful restart.
	EventRestarted
	// EventConfigReloaded is emitted when configuration is reloaded.
	EventConfigReloaded
	// EventError is emitted when an error is reported.
	EventError
)

// String returns the name used in logs.
func (e EventType) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventRestarted:
		return "restarted"
	case EventConfigReloaded:
		return "config_reloaded"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}
