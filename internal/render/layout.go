package render

import (
	"image"

	"github.com/opd-ai/go-dockbar/internal/bar"
	"github.com/opd-ai/go-dockbar/internal/text"
)

// Placement is a segment together with the box it occupies on the surface.
type Placement struct {
	// Slot is the index of the slot the segment came from.
	Slot int
	// Segment is the segment to paint.
	Segment text.Segment
	// Box is the segment box in surface coordinates, padding included.
	// It may be empty when the segment was clipped away entirely.
	Box image.Rectangle
}

// maxExtent caps single measurements so sums cannot overflow.
const maxExtent = 1 << 20

func clampExtent(v int) int {
	return min(max(v, 0), maxExtent)
}

type measured struct {
	slot  int
	align bar.Align
	seg   text.Segment
	width int
}

// Layout places every segment of every slot on a bar of geometry g.
//
// Left-aligned slots are laid out left to right from x=0 in slot order.
// Right-aligned slots keep their slot order but the group as a whole is
// anchored to the right edge. Stretch segments share whatever width the other
// segments leave over. Content that does not fit is clipped, never wrapped;
// the right group is painted after, and therefore over, the left group.
func Layout(slots []bar.Slot, g Geometry, fonts Fonts) []Placement {
	var items []measured
	fixed, stretches := 0, 0
	for _, s := range slots {
		for _, seg := range s.Block {
			w := 0
			if !seg.Stretch {
				tw, _ := fonts.Measure(seg.Style, seg.Text)
				w = clampExtent(clampExtent(tw) + clampExtent(seg.Padding.Left) + clampExtent(seg.Padding.Right))
				fixed += w
			} else {
				stretches++
			}
			items = append(items, measured{slot: s.Index, align: s.Align, seg: seg, width: w})
		}
	}

	if stretches > 0 {
		free := max(g.Width-fixed, 0)
		share, rest := free/stretches, free%stretches
		seen := 0
		for i := range items {
			if !items[i].seg.Stretch {
				continue
			}
			items[i].width = share
			// The last stretch segment takes the odd pixels.
			if seen++; seen == stretches {
				items[i].width += rest
			}
		}
	}

	rightWidth := 0
	for _, it := range items {
		if it.align == bar.AlignRight {
			rightWidth += it.width
		}
	}

	bounds := g.Bounds()
	out := make([]Placement, 0, len(items))
	place := func(align bar.Align, x int) {
		for _, it := range items {
			if it.align != align {
				continue
			}
			box := image.Rect(x, 0, x+it.width, g.Height).Intersect(bounds)
			out = append(out, Placement{Slot: it.slot, Segment: it.seg, Box: box})
			x += it.width
		}
	}
	place(bar.AlignLeft, 0)
	place(bar.AlignRight, g.Width-rightWidth)
	return out
}

// PreferredHeight returns the bar height needed to show one line of text in
// any style plus the given vertical padding. Segments padded by at most that
// much keep their full line height.
func PreferredHeight(fonts Fonts, verticalPadding int) int {
	h := 0
	for _, style := range text.Styles {
		_, lh := fonts.Measure(style, "")
		h = max(h, clampExtent(lh))
	}
	return h + clampExtent(verticalPadding)
}
