package config

import (
	"image/color"

	"github.com/opd-ai/go-dockbar/internal/render"
	"github.com/opd-ai/go-dockbar/internal/text"
)

// Default values for configuration options.
const (
	// DefaultFont is the default font family.
	DefaultFont = render.DefaultFamily
	// DefaultFontSize is the default font size in points.
	DefaultFontSize = 12.0
	// DefaultBarPadding is the least vertical padding added to the font
	// height when the bar height is derived. Widgets padded more than this
	// make the bar taller.
	DefaultBarPadding = 4
)

// Default colors.
var (
	// DefaultForeground is the default text color.
	DefaultForeground = color.RGBA{R: 0xc5, G: 0xc8, B: 0xc6, A: 0xff}
	// DefaultBackground is the default bar color.
	DefaultBackground = color.RGBA{R: 0x1d, G: 0x1f, B: 0x21, A: 0xff}
	// DefaultHighlight is the default background of the active desktop.
	DefaultHighlight = color.RGBA{R: 0x37, G: 0x3b, B: 0x41, A: 0xff}
	// DefaultDim is the default color of empty inactive desktops.
	DefaultDim = color.RGBA{R: 0x70, G: 0x78, B: 0x80, A: 0xff}
)

// DefaultConfig returns a Config with sensible default values and no widgets.
func DefaultConfig() Config {
	return Config{Bar: DefaultBarConfig()}
}

// DefaultBarConfig returns the default bar settings: a full-width bar at the
// top of the first output, sized from the font.
func DefaultBarConfig() BarConfig {
	return BarConfig{
		Position:   render.PositionTop,
		Font:       DefaultFont,
		FontSize:   DefaultFontSize,
		Foreground: DefaultForeground,
		Background: DefaultBackground,
		Padding:    text.NewPadding(6, 6, 0, 0),
	}
}

// DefaultAttributes returns the widget attributes inherited from b.
func (b BarConfig) DefaultAttributes() text.Attributes {
	return text.Attributes{
		Foreground: b.Foreground,
		Padding:    b.Padding,
	}
}

// DefaultPagerAttributes returns the active, inactive and non-empty desktop
// styles inherited from b.
func (b BarConfig) DefaultPagerAttributes() (active, inactive, nonEmpty text.Attributes) {
	active = b.DefaultAttributes()
	active.Background = DefaultHighlight
	inactive = b.DefaultAttributes()
	inactive.Foreground = DefaultDim
	nonEmpty = b.DefaultAttributes()
	return active, inactive, nonEmpty
}
