package window

import "image"

// EventKind identifies what happened to the bar window or its output.
type EventKind int

const (
	// EventExpose means part of the window must be redrawn.
	EventExpose EventKind = iota
	// EventConfigure means the bar window was moved or resized.
	EventConfigure
	// EventOutputChanged means the target output changed size or layout.
	EventOutputChanged
	// EventDestroy means the bar window is gone.
	EventDestroy
)

// String returns the event kind as a lowercase word.
func (k EventKind) String() string {
	switch k {
	case EventExpose:
		return "expose"
	case EventConfigure:
		return "configure"
	case EventOutputChanged:
		return "output_changed"
	case EventDestroy:
		return "destroy"
	default:
		return "unknown"
	}
}

// Event is a windowing event delivered to the scheduler.
type Event struct {
	Kind EventKind
	// Bounds is the affected rectangle for Expose and the new window
	// rectangle for Configure. It is empty otherwise.
	Bounds image.Rectangle
}
