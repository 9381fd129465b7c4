package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/opd-ai/go-dockbar/internal/text"
)

// fakeFonts measures every rune as runeWidth pixels unless widths overrides
// the text, and draws a solid bar where the glyphs would be.
type fakeFonts struct {
	runeWidth  int
	lineHeight int
	ascent     int
	widths     map[string]int
	panicOn    string
}

func newFakeFonts() *fakeFonts {
	return &fakeFonts{runeWidth: 10, lineHeight: 12, ascent: 9}
}

func (f *fakeFonts) Measure(_ text.Style, s string) (int, int) {
	if w, ok := f.widths[s]; ok {
		return w, f.lineHeight
	}
	return len([]rune(s)) * f.runeWidth, f.lineHeight
}

func (f *fakeFonts) Ascent(text.Style) int {
	return f.ascent
}

func (f *fakeFonts) Draw(dst draw.Image, _ text.Style, dot image.Point, c color.Color, s string) {
	if s == f.panicOn {
		panic("glyph exploded")
	}
	// Glyphs always cover their natural width so clipping is observable.
	w := len([]rune(s)) * f.runeWidth
	r := image.Rect(dot.X, dot.Y-f.ascent, dot.X+w, dot.Y-f.ascent+f.lineHeight)
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}
