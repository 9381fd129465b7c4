// Package render turns the bar's widget slots into pixels.
//
// Layout is a pure function from slots, geometry and font metrics to segment
// placements; the Compositor paints those placements into an RGBA surface.
// Neither step modifies the blocks it is given, so identical inputs always
// produce identical surfaces.
package render

import (
	"fmt"
	"image"
)

// Position is the screen edge the bar is attached to.
type Position int

const (
	// PositionTop attaches the bar to the top edge of the output.
	PositionTop Position = iota
	// PositionBottom attaches the bar to the bottom edge of the output.
	PositionBottom
)

// String returns the configuration name of the position.
func (p Position) String() string {
	switch p {
	case PositionTop:
		return "top"
	case PositionBottom:
		return "bottom"
	default:
		return "unknown"
	}
}

// ParsePosition parses "top" or "bottom". An empty string means top.
func ParsePosition(s string) (Position, error) {
	switch s {
	case "top", "":
		return PositionTop, nil
	case "bottom":
		return PositionBottom, nil
	default:
		return PositionTop, fmt.Errorf("unknown position: %s", s)
	}
}

// Geometry is where the bar sits on screen and how large it is.
// It is a value: a recomputation replaces it wholesale.
type Geometry struct {
	// Position is the edge the bar is attached to.
	Position Position
	// Screen is the bounds of the target output in root window coordinates.
	Screen image.Rectangle
	// X and Y are the bar window origin in root window coordinates.
	X, Y int
	// Width and Height are the bar window size in pixels.
	Width, Height int
}

// Rect returns the bar window rectangle in root window coordinates.
func (g Geometry) Rect() image.Rectangle {
	return image.Rect(g.X, g.Y, g.X+g.Width, g.Y+g.Height)
}

// Bounds returns the surface rectangle, anchored at the origin.
func (g Geometry) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

// Validate reports whether the geometry describes a drawable bar.
func (g Geometry) Validate() error {
	if g.Width <= 0 {
		return fmt.Errorf("width must be positive, got %d", g.Width)
	}
	if g.Height <= 0 {
		return fmt.Errorf("height must be positive, got %d", g.Height)
	}
	return nil
}

// String formats the geometry like an X11 geometry string.
func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", g.Width, g.Height, g.X, g.Y)
}
