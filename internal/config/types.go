// Package config provides configuration parsing for dockbar-go.
// A configuration describes the bar itself and the ordered list of widgets
// shown on it, in either Lua or YAML form.
package config

import (
	"fmt"
	"image/color"
	"time"

	"github.com/opd-ai/go-dockbar/internal/bar"
	"github.com/opd-ai/go-dockbar/internal/render"
	"github.com/opd-ai/go-dockbar/internal/text"
)

// Config is a complete, typed bar configuration.
type Config struct {
	// Bar holds bar-wide settings.
	Bar BarConfig
	// Widgets lists the widgets in slot order.
	Widgets []WidgetConfig
}

// BarConfig holds the settings of the bar window and its defaults.
type BarConfig struct {
	// Position is the screen edge the bar is attached to.
	Position render.Position
	// Width is the bar width in pixels; 0 means the full output width.
	Width int
	// Height is the bar height in pixels; 0 means derived from the font.
	Height int
	// OffsetX and OffsetY move the bar away from the output corner.
	OffsetX, OffsetY int
	// Head selects the Xinerama output the bar is placed on.
	Head int
	// Display is the X display name; empty means $DISPLAY.
	Display string
	// Font is the font family name.
	Font string
	// FontSize is the font size in points.
	FontSize float64
	// FontFile optionally loads a TrueType/OpenType file as the regular
	// style of Font.
	FontFile string
	// Foreground is the default text color.
	Foreground color.RGBA
	// Background fills the whole bar.
	Background color.RGBA
	// Padding is the default segment padding.
	Padding text.Padding
	// CoalesceWindow extends each repaint tick by this duration.
	CoalesceWindow time.Duration
	// MaxPaintRate caps repaints per second; 0 means unlimited.
	MaxPaintRate float64
}

// WidgetType names a widget implementation.
type WidgetType string

// Widget types.
const (
	WidgetClock   WidgetType = "clock"
	WidgetTitle   WidgetType = "title"
	WidgetPager   WidgetType = "pager"
	WidgetCommand WidgetType = "command"
	WidgetFile    WidgetType = "file"
	WidgetText    WidgetType = "text"
)

// WidgetTypes lists every known widget type.
var WidgetTypes = []WidgetType{WidgetClock, WidgetTitle, WidgetPager, WidgetCommand, WidgetFile, WidgetText}

// Known reports whether t is a known widget type.
func (t WidgetType) Known() bool {
	for _, k := range WidgetTypes {
		if t == k {
			return true
		}
	}
	return false
}

// WidgetConfig configures one widget slot.
type WidgetConfig struct {
	// Type selects the widget implementation.
	Type WidgetType
	// Name identifies the widget in logs and metrics. Defaults to Type
	// plus the slot index.
	Name string
	// Align is the alignment group.
	Align bar.Align
	// Attributes style the widget's segments.
	Attributes text.Attributes
	// Placeholder is shown until the first update.
	Placeholder string
	// Stretch makes the widget's segments share the leftover width.
	Stretch bool
	// Interval is the update period of clock and command widgets.
	Interval time.Duration
	// Format is the strftime format of a clock widget.
	Format string
	// Command is the shell command of a command widget.
	Command string
	// Path is the file shown by a file widget.
	Path string
	// Text is the content of a text widget.
	Text string
	// Active, Inactive and NonEmpty style the desktops of a pager widget.
	Active, Inactive, NonEmpty text.Attributes
}

// PlaceholderBlock returns the block shown before the first update.
func (w WidgetConfig) PlaceholderBlock() text.Block {
	if w.Placeholder == "" {
		return nil
	}
	return w.Attributes.Block(w.Placeholder)
}

// SlotSpec returns the table slot description of the widget.
func (w WidgetConfig) SlotSpec() bar.SlotSpec {
	return bar.SlotSpec{Name: w.Name, Align: w.Align, Placeholder: w.PlaceholderBlock()}
}

// SlotSpecs returns the slot descriptions of every widget, in order.
func (c *Config) SlotSpecs() []bar.SlotSpec {
	out := make([]bar.SlotSpec, len(c.Widgets))
	for i, w := range c.Widgets {
		out[i] = w.SlotSpec()
	}
	return out
}

// MaxVerticalPadding returns the largest top plus bottom padding of any
// widget style, the desktop styles of pagers included.
func (c *Config) MaxVerticalPadding() int {
	v := 0
	for _, w := range c.Widgets {
		v = max(v, w.Attributes.Padding.Vertical())
		if w.Type == WidgetPager {
			v = max(v, w.Active.Padding.Vertical(), w.Inactive.Padding.Vertical(), w.NonEmpty.Padding.Vertical())
		}
	}
	return v
}

// String returns a short description of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("bar(%s, %d widgets)", c.Bar.Position, len(c.Widgets))
}
