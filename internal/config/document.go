package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opd-ai/go-dockbar/internal/bar"
	"github.com/opd-ai/go-dockbar/internal/render"
	"github.com/opd-ai/go-dockbar/internal/text"
)

// document is the untyped shape shared by the YAML and Lua formats. Both
// parsers decode into it; build turns it into a Config.
type document struct {
	Bar     barDocument      `yaml:"bar"`
	Widgets []widgetDocument `yaml:"widgets"`
}

type barDocument struct {
	Position     string         `yaml:"position"`
	Width        string         `yaml:"width"`
	Height       int            `yaml:"height"`
	Offset       offsetDocument `yaml:"offset"`
	Head         int            `yaml:"head"`
	Display      string         `yaml:"display"`
	Font         string         `yaml:"font"`
	FontSize     float64        `yaml:"font_size"`
	FontFile     string         `yaml:"font_file"`
	Foreground   string         `yaml:"foreground"`
	Background   string         `yaml:"background"`
	Padding      []int          `yaml:"padding"`
	Coalesce     string         `yaml:"coalesce"`
	MaxPaintRate float64        `yaml:"max_paint_rate"`
}

type offsetDocument struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

type styleDocument struct {
	Foreground string `yaml:"foreground"`
	Background string `yaml:"background"`
	Padding    []int  `yaml:"padding"`
	FontStyle  string `yaml:"font_style"`
}

type widgetDocument struct {
	Type          string `yaml:"type"`
	Name          string `yaml:"name"`
	Align         string `yaml:"align"`
	styleDocument `yaml:",inline"`
	Placeholder   string         `yaml:"placeholder"`
	Stretch       *bool          `yaml:"stretch"`
	Interval      string         `yaml:"interval"`
	Format        string         `yaml:"format"`
	Command       string         `yaml:"command"`
	Path          string         `yaml:"path"`
	Text          string         `yaml:"text"`
	Active        *styleDocument `yaml:"active"`
	Inactive      *styleDocument `yaml:"inactive"`
	NonEmpty      *styleDocument `yaml:"non_empty"`
}

// expandEnv expands environment references in every free-form string.
func (d *document) expandEnv() {
	d.Bar.Display = ExpandEnv(d.Bar.Display)
	d.Bar.Font = ExpandEnv(d.Bar.Font)
	d.Bar.FontFile = ExpandEnv(d.Bar.FontFile)
	for i := range d.Widgets {
		w := &d.Widgets[i]
		w.Name = ExpandEnv(w.Name)
		w.Placeholder = ExpandEnv(w.Placeholder)
		w.Format = ExpandEnv(w.Format)
		w.Command = ExpandEnv(w.Command)
		w.Path = ExpandEnv(w.Path)
		w.Text = ExpandEnv(w.Text)
	}
}

// build converts the document into a Config on top of the defaults.
func (d *document) build() (*Config, error) {
	cfg := DefaultConfig()
	if err := d.Bar.apply(&cfg.Bar); err != nil {
		return nil, err
	}

	cfg.Widgets = make([]WidgetConfig, 0, len(d.Widgets))
	for i, wd := range d.Widgets {
		w, err := wd.build(cfg.Bar, i)
		if err != nil {
			return nil, fmt.Errorf("widgets[%d]: %w", i, err)
		}
		cfg.Widgets = append(cfg.Widgets, w)
	}
	return &cfg, nil
}

func (b *barDocument) apply(bc *BarConfig) error {
	var err error
	if bc.Position, err = render.ParsePosition(strings.ToLower(b.Position)); err != nil {
		return fmt.Errorf("bar.position: %w", err)
	}
	if bc.Width, err = parseWidth(b.Width); err != nil {
		return fmt.Errorf("bar.width: %w", err)
	}
	bc.Height = b.Height
	bc.OffsetX, bc.OffsetY = b.Offset.X, b.Offset.Y
	bc.Head = b.Head
	bc.Display = b.Display
	if b.Font != "" {
		bc.Font = b.Font
	}
	if b.FontSize != 0 {
		bc.FontSize = b.FontSize
	}
	bc.FontFile = b.FontFile
	if b.Foreground != "" {
		if bc.Foreground, err = text.ParseColor(b.Foreground); err != nil {
			return fmt.Errorf("bar.foreground: %w", err)
		}
	}
	if b.Background != "" {
		if bc.Background, err = text.ParseColor(b.Background); err != nil {
			return fmt.Errorf("bar.background: %w", err)
		}
	}
	if b.Padding != nil {
		if bc.Padding, err = parsePadding(b.Padding); err != nil {
			return fmt.Errorf("bar.padding: %w", err)
		}
	}
	if b.Coalesce != "" {
		if bc.CoalesceWindow, err = parseDuration(b.Coalesce); err != nil {
			return fmt.Errorf("bar.coalesce: %w", err)
		}
	}
	bc.MaxPaintRate = b.MaxPaintRate
	return nil
}

func (wd *widgetDocument) build(bc BarConfig, index int) (WidgetConfig, error) {
	w := WidgetConfig{
		Type:        WidgetType(strings.ToLower(wd.Type)),
		Name:        wd.Name,
		Placeholder: wd.Placeholder,
		Format:      wd.Format,
		Command:     wd.Command,
		Path:        wd.Path,
		Text:        wd.Text,
		Stretch:     w0Stretch(wd),
	}
	if w.Name == "" {
		w.Name = fmt.Sprintf("%s%d", w.Type, index)
	}

	var err error
	if w.Align, err = bar.ParseAlign(strings.ToLower(wd.Align)); err != nil {
		return w, fmt.Errorf("align: %w", err)
	}
	if w.Attributes, err = wd.styleDocument.apply(bc.DefaultAttributes()); err != nil {
		return w, err
	}
	if wd.Interval != "" {
		if w.Interval, err = parseDuration(wd.Interval); err != nil {
			return w, fmt.Errorf("interval: %w", err)
		}
	}

	active, inactive, nonEmpty := bc.DefaultPagerAttributes()
	for _, s := range []struct {
		name string
		doc  *styleDocument
		base text.Attributes
		dst  *text.Attributes
	}{
		{"active", wd.Active, active, &w.Active},
		{"inactive", wd.Inactive, inactive, &w.Inactive},
		{"non_empty", wd.NonEmpty, nonEmpty, &w.NonEmpty},
	} {
		*s.dst = s.base
		if s.doc == nil {
			continue
		}
		if *s.dst, err = s.doc.apply(s.base); err != nil {
			return w, fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return w, nil
}

// w0Stretch returns the explicit stretch setting, defaulting to true for
// the window title.
func w0Stretch(wd *widgetDocument) bool {
	if wd.Stretch != nil {
		return *wd.Stretch
	}
	return WidgetType(strings.ToLower(wd.Type)) == WidgetTitle
}

func (s *styleDocument) apply(base text.Attributes) (text.Attributes, error) {
	a := base
	var err error
	if s.Foreground != "" {
		if a.Foreground, err = text.ParseColor(s.Foreground); err != nil {
			return a, fmt.Errorf("foreground: %w", err)
		}
	}
	if s.Background != "" {
		if a.Background, err = text.ParseColor(s.Background); err != nil {
			return a, fmt.Errorf("background: %w", err)
		}
	}
	if s.Padding != nil {
		if a.Padding, err = parsePadding(s.Padding); err != nil {
			return a, fmt.Errorf("padding: %w", err)
		}
	}
	if s.FontStyle != "" {
		if a.Style, err = text.ParseStyle(strings.ToLower(s.FontStyle)); err != nil {
			return a, fmt.Errorf("font_style: %w", err)
		}
	}
	return a, nil
}

// parseWidth accepts a pixel count, "auto" or an empty string.
func parseWidth(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "auto") {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSuffix(s, "px"))
	if err != nil {
		return 0, fmt.Errorf("expected pixels or \"auto\", got %q", s)
	}
	return n, nil
}

// parsePadding accepts one value for all sides, two for horizontal and
// vertical, or four in left, right, top, bottom order.
func parsePadding(p []int) (text.Padding, error) {
	switch len(p) {
	case 1:
		return text.NewPadding(p[0], p[0], p[0], p[0]), nil
	case 2:
		return text.NewPadding(p[0], p[0], p[1], p[1]), nil
	case 4:
		return text.NewPadding(p[0], p[1], p[2], p[3]), nil
	default:
		return text.Padding{}, fmt.Errorf("expected 1, 2 or 4 values, got %d", len(p))
	}
}

// parseDuration accepts Go duration syntax or a plain number of seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
