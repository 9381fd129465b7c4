package text

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// NamedColors maps the color names accepted in configuration to RGBA values.
var NamedColors = map[string]color.RGBA{
	"black":     {R: 0, G: 0, B: 0, A: 255},
	"white":     {R: 255, G: 255, B: 255, A: 255},
	"red":       {R: 255, G: 0, B: 0, A: 255},
	"green":     {R: 0, G: 128, B: 0, A: 255},
	"lime":      {R: 0, G: 255, B: 0, A: 255},
	"blue":      {R: 0, G: 0, B: 255, A: 255},
	"navy":      {R: 0, G: 0, B: 128, A: 255},
	"yellow":    {R: 255, G: 255, B: 0, A: 255},
	"cyan":      {R: 0, G: 255, B: 255, A: 255},
	"magenta":   {R: 255, G: 0, B: 255, A: 255},
	"orange":    {R: 255, G: 165, B: 0, A: 255},
	"purple":    {R: 128, G: 0, B: 128, A: 255},
	"gray":      {R: 128, G: 128, B: 128, A: 255},
	"grey":      {R: 128, G: 128, B: 128, A: 255},
	"silver":    {R: 192, G: 192, B: 192, A: 255},
	"darkgray":  {R: 169, G: 169, B: 169, A: 255},
	"darkgrey":  {R: 169, G: 169, B: 169, A: 255},
	"lightgray": {R: 211, G: 211, B: 211, A: 255},
	"lightgrey": {R: 211, G: 211, B: 211, A: 255},

	"transparent": {},
	"none":        {},
}

// ParseColor parses a color string and returns an RGBA color.
// Supported formats:
//   - Named colors: "red", "white", "transparent", ...
//   - Hex: "#RGB", "#RGBA", "#RRGGBB", "#RRGGBBAA", with or without '#'
//   - "rgb(255, 0, 0)" and "rgba(255, 0, 0, 0.5)" or "rgba(255, 0, 0, 128)"
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}

	lower := strings.ToLower(s)
	if clr, ok := NamedColors[lower]; ok {
		return clr, nil
	}

	switch {
	case strings.HasPrefix(s, "#") || isHexString(s):
		return parseHexColor(strings.TrimPrefix(s, "#"))
	case strings.HasPrefix(lower, "rgba(") && strings.HasSuffix(s, ")"):
		return parseRGBFunc(s[5:len(s)-1], 4)
	case strings.HasPrefix(lower, "rgb(") && strings.HasSuffix(s, ")"):
		return parseRGBFunc(s[4:len(s)-1], 3)
	}

	return color.RGBA{}, fmt.Errorf("unrecognized color format: %q", s)
}

// MustParseColor parses a color string and panics if parsing fails.
// Use this only for known-good color values in initialization code.
func MustParseColor(s string) color.RGBA {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ToHex formats c as #RRGGBB, or #RRGGBBAA when it is not opaque.
func ToHex(c color.RGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func isHexString(s string) bool {
	switch len(s) {
	case 3, 4, 6, 8:
	default:
		return false
	}
	_, err := strconv.ParseUint(s, 16, 64)
	return err == nil
}

func parseHexColor(s string) (color.RGBA, error) {
	// Expand shorthand forms so every channel is two digits.
	if len(s) == 3 || len(s) == 4 {
		var b strings.Builder
		for _, r := range s {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		s = b.String()
	}
	if len(s) != 6 && len(s) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid hex color length: %d", len(s))
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	if len(s) == 6 {
		v = v<<8 | 0xff
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func parseRGBFunc(content string, want int) (color.RGBA, error) {
	parts := strings.Split(content, ",")
	if len(parts) != want {
		return color.RGBA{}, fmt.Errorf("expected %d color values, got %d", want, len(parts))
	}

	var ch [4]uint8
	ch[3] = 255
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == 3 {
			a, err := parseAlpha(p)
			if err != nil {
				return color.RGBA{}, fmt.Errorf("invalid alpha value: %w", err)
			}
			ch[3] = a
			continue
		}
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid color value %q: %w", p, err)
		}
		ch[i] = uint8(v)
	}
	return color.RGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}

// parseAlpha accepts both 0-255 integers and 0.0-1.0 floats.
func parseAlpha(s string) (uint8, error) {
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		f = min(max(f, 0), 1)
		return uint8(f * 255), nil
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}
