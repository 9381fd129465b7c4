package window

import (
	"errors"
	"fmt"
	"image"

	"github.com/opd-ai/go-dockbar/internal/render"
)

// Placement is the configured size and position of the bar.
type Placement struct {
	Position render.Position
	// Width is the bar width in pixels. Zero or anything wider than the
	// output means the full output width minus OffsetX.
	Width int
	// Height is the bar height in pixels and must be positive.
	Height int
	// OffsetX is measured from the output's left edge. OffsetY is measured
	// from the edge the bar is attached to.
	OffsetX, OffsetY int
}

// ComputeGeometry places the bar on output out. It is a pure function: the
// same placement and output always give the same geometry.
func ComputeGeometry(p Placement, out image.Rectangle) (render.Geometry, error) {
	if out.Empty() {
		return render.Geometry{}, errors.New("output has no area")
	}
	if p.Height <= 0 {
		return render.Geometry{}, fmt.Errorf("bar height must be positive, got %d", p.Height)
	}
	if p.OffsetX < 0 || p.OffsetY < 0 {
		return render.Geometry{}, fmt.Errorf("negative offset %d,%d", p.OffsetX, p.OffsetY)
	}

	avail := out.Dx() - p.OffsetX
	if avail <= 0 {
		return render.Geometry{}, fmt.Errorf("x offset %d is outside the %dpx output", p.OffsetX, out.Dx())
	}
	if p.Height+p.OffsetY > out.Dy() {
		return render.Geometry{}, fmt.Errorf("bar of height %d at offset %d does not fit the %dpx output", p.Height, p.OffsetY, out.Dy())
	}

	width := p.Width
	if width <= 0 || width > avail {
		width = avail
	}

	g := render.Geometry{
		Position: p.Position,
		Screen:   out,
		X:        out.Min.X + p.OffsetX,
		Y:        out.Min.Y + p.OffsetY,
		Width:    width,
		Height:   p.Height,
	}
	if p.Position == render.PositionBottom {
		g.Y = out.Max.Y - p.Height - p.OffsetY
	}
	return g, nil
}

// ComputeStrut returns the space to reserve for a bar at g on a root window
// of the given bounds. The reservation runs from the root edge to the far
// side of the bar, so offsets are reserved too.
func ComputeStrut(g render.Geometry, root image.Rectangle) Strut {
	if g.Width <= 0 || g.Height <= 0 {
		return Strut{}
	}
	startX := uint(max(g.X, 0))
	endX := uint(max(g.X+g.Width-1, 0))

	if g.Position == render.PositionBottom {
		return Strut{
			Bottom:       uint(max(root.Max.Y-g.Y, 0)),
			BottomStartX: startX,
			BottomEndX:   endX,
		}
	}
	return Strut{
		Top:       uint(max(g.Y+g.Height-root.Min.Y, 0)),
		TopStartX: startX,
		TopEndX:   endX,
	}
}
