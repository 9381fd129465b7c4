// Package text defines the styled text a widget hands to the bar.
//
// A widget update is a Block: an ordered run of Segments, each carrying its
// own colors, padding and font style. Blocks are values; once emitted they
// are never modified by the bar.
package text

import (
	"image/color"
	"slices"
)

// Padding is the space in pixels around a segment's text.
type Padding struct {
	Left   int
	Right  int
	Top    int
	Bottom int
}

// NewPadding returns a Padding with the given left, right, top and bottom values.
func NewPadding(left, right, top, bottom int) Padding {
	return Padding{Left: left, Right: right, Top: top, Bottom: bottom}
}

// Horizontal returns Left+Right.
func (p Padding) Horizontal() int {
	return p.Left + p.Right
}

// Vertical returns Top+Bottom.
func (p Padding) Vertical() int {
	return p.Top + p.Bottom
}

// Segment is one run of uniformly styled text.
type Segment struct {
	// Text is the string to draw. It is never wrapped.
	Text string
	// Foreground is the text color.
	Foreground color.RGBA
	// Background fills the segment box before the text is drawn.
	// A zero alpha means the segment has no background of its own.
	Background color.RGBA
	// Padding surrounds the text inside the segment box.
	Padding Padding
	// Style selects the font face variant.
	Style Style
	// Stretch segments share the bar width left over by all other segments.
	Stretch bool
}

// HasBackground reports whether the segment paints its own background.
func (s Segment) HasBackground() bool {
	return s.Background.A != 0
}

// Block is the payload of a single widget update.
// An empty Block is valid and renders nothing.
type Block []Segment

// Equal reports whether two blocks hold the same segments in the same order.
func (b Block) Equal(other Block) bool {
	return slices.Equal(b, other)
}

// Clone returns a copy of b that shares no backing array with it.
func (b Block) Clone() Block {
	if b == nil {
		return nil
	}
	return slices.Clone(b)
}

// String joins the text of every segment, which is handy in logs and tests.
func (b Block) String() string {
	n := 0
	for _, s := range b {
		n += len(s.Text)
	}
	buf := make([]byte, 0, n)
	for _, s := range b {
		buf = append(buf, s.Text...)
	}
	return string(buf)
}

// Attributes is the styling a widget applies to the text it produces.
type Attributes struct {
	Foreground color.RGBA
	Background color.RGBA
	Padding    Padding
	Style      Style
}

// DefaultAttributes returns white regular text with no background or padding.
func DefaultAttributes() Attributes {
	return Attributes{Foreground: color.RGBA{R: 255, G: 255, B: 255, A: 255}}
}

// Segment builds a Segment carrying these attributes.
func (a Attributes) Segment(s string) Segment {
	return Segment{
		Text:       s,
		Foreground: a.Foreground,
		Background: a.Background,
		Padding:    a.Padding,
		Style:      a.Style,
	}
}

// Block builds a single-segment Block carrying these attributes.
func (a Attributes) Block(s string) Block {
	return Block{a.Segment(s)}
}
