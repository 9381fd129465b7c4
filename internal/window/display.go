// Package window negotiates the bar's place on screen with the window system
// and presents composed surfaces.
//
// A Display is the raw windowing capability (X11 in production). A Layer
// wraps one Display with the bar's lifecycle: it computes the geometry,
// creates the dock window, reserves the strut and filters events once
// shutdown begins.
package window

import (
	"context"
	"image"
)

// Output describes where the bar may be placed.
type Output struct {
	// Bounds is the target output in root window coordinates.
	Bounds image.Rectangle
	// Root is the whole root window. Struts are measured from its edges.
	Root image.Rectangle
}

// Strut is the screen space reserved along the root window edges, in the
// shape of _NET_WM_STRUT_PARTIAL. Only the top and bottom edges are used.
type Strut struct {
	Top, Bottom              uint
	TopStartX, TopEndX       uint
	BottomStartX, BottomEndX uint
}

// Display is a windowing system connection able to host one dock window.
type Display interface {
	// OutputBounds reports the target output and root window bounds.
	OutputBounds(ctx context.Context) (Output, error)
	// CreateDock creates and maps the dock window at rect.
	CreateDock(rect image.Rectangle, class string) error
	// MoveResize moves the dock window to rect.
	MoveResize(rect image.Rectangle) error
	// SetStrut reserves screen space for the dock window.
	SetStrut(s Strut) error
	// Blit copies surface onto the dock window.
	Blit(surface *image.RGBA) error
	// Events delivers window events. The channel is closed when the
	// connection ends.
	Events() <-chan Event
	// Close destroys the window and releases the connection.
	Close() error
}
