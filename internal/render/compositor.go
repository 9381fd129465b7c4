package render

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/opd-ai/go-dockbar/internal/bar"
)

// Compositor paints the bar's slots onto a surface it owns.
//
// The surface is reused between calls while the geometry keeps its size, so
// callers must finish with one result before composing again. A Compositor is
// not safe for concurrent use.
type Compositor struct {
	fonts      Fonts
	background color.RGBA
	logger     *slog.Logger
	surface    *image.RGBA
	paints     uint64
}

// NewCompositor creates a Compositor drawing text with fonts on a bar filled
// with background. A nil logger discards diagnostics.
func NewCompositor(fonts Fonts, background color.RGBA, logger *slog.Logger) *Compositor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Compositor{fonts: fonts, background: background, logger: logger}
}

// Surface returns the most recently composed surface, or nil.
func (c *Compositor) Surface() *image.RGBA {
	return c.surface
}

// Paints returns how many times Compose ran.
func (c *Compositor) Paints() uint64 {
	return c.paints
}

// Compose lays out slots on geometry g and paints them. A segment whose
// painting panics is skipped and logged; the rest of the bar is still drawn.
func (c *Compositor) Compose(slots []bar.Slot, g Geometry) *image.RGBA {
	c.paints++

	bounds := g.Bounds()
	if bounds.Empty() {
		bounds = image.Rect(0, 0, 1, 1)
	}
	if c.surface == nil || c.surface.Bounds() != bounds {
		c.surface = image.NewRGBA(bounds)
	}
	draw.Draw(c.surface, bounds, image.NewUniform(c.background), image.Point{}, draw.Src)

	for _, p := range Layout(slots, g, c.fonts) {
		c.paintSegment(p)
	}
	return c.surface
}

func (c *Compositor) paintSegment(p Placement) {
	if p.Box.Empty() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("segment paint failed", "slot", p.Slot, "text", p.Segment.Text, "panic", r)
		}
	}()

	seg := p.Segment
	if seg.HasBackground() {
		draw.Draw(c.surface, p.Box, image.NewUniform(seg.Background), image.Point{}, draw.Src)
	}
	if seg.Text == "" {
		return
	}

	pad := seg.Padding
	inner := image.Rect(
		p.Box.Min.X+clampExtent(pad.Left), p.Box.Min.Y+clampExtent(pad.Top),
		p.Box.Max.X-clampExtent(pad.Right), p.Box.Max.Y-clampExtent(pad.Bottom),
	).Intersect(p.Box)
	if inner.Empty() {
		return
	}

	_, lineHeight := c.fonts.Measure(seg.Style, seg.Text)
	lineHeight = clampExtent(lineHeight)
	ascent := clampExtent(c.fonts.Ascent(seg.Style))
	top := inner.Min.Y + (inner.Dy()-lineHeight)/2
	dot := image.Pt(inner.Min.X, top+ascent)

	dst, ok := c.surface.SubImage(inner).(*image.RGBA)
	if !ok {
		return
	}
	c.fonts.Draw(dst, seg.Style, dot, seg.Foreground, seg.Text)
}
