package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"sort"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/opd-ai/go-dockbar/internal/text"
)

// Fonts is the font-metrics and glyph-drawing capability the compositor uses.
// Implementations must be deterministic: the same input always measures and
// draws the same way.
type Fonts interface {
	// Measure returns the advance width of s and the line height of style.
	Measure(style text.Style, s string) (width, height int)
	// Ascent returns the distance from the top of a line to its baseline.
	Ascent(style text.Style) int
	// Draw paints s with its baseline origin at dot. Drawing is clipped to
	// dst's bounds.
	Draw(dst draw.Image, style text.Style, dot image.Point, c color.Color, s string)
}

// FontFamily is a named set of parsed fonts, one per style.
type FontFamily struct {
	name  string
	fonts map[text.Style]*opentype.Font
}

// NewFontFamily creates an empty FontFamily with the given name.
func NewFontFamily(name string) *FontFamily {
	return &FontFamily{name: name, fonts: make(map[text.Style]*opentype.Font)}
}

// Name returns the family name.
func (ff *FontFamily) Name() string {
	return ff.name
}

// Font returns the font for style, falling back to the closest available
// style and finally to any style at all. It returns nil for an empty family.
func (ff *FontFamily) Font(style text.Style) *opentype.Font {
	if f, ok := ff.fonts[style]; ok {
		return f
	}
	if style == text.StyleBoldItalic {
		if f, ok := ff.fonts[text.StyleBold]; ok {
			return f
		}
	}
	for _, s := range text.Styles {
		if f, ok := ff.fonts[s]; ok {
			return f
		}
	}
	return nil
}

// FontManager holds the font families available to the bar.
// The embedded Go fonts are always present as "GoSans" and "GoMono".
type FontManager struct {
	mu       sync.RWMutex
	families map[string]*FontFamily
}

// DefaultFamily is used when the configuration names no family.
const DefaultFamily = "GoSans"

// NewFontManager creates a FontManager with the embedded Go fonts loaded.
func NewFontManager() *FontManager {
	fm := &FontManager{families: make(map[string]*FontFamily)}

	embedded := []struct {
		family string
		style  text.Style
		data   []byte
	}{
		{"GoSans", text.StyleRegular, goregular.TTF},
		{"GoSans", text.StyleBold, gobold.TTF},
		{"GoSans", text.StyleItalic, goitalic.TTF},
		{"GoSans", text.StyleBoldItalic, gobolditalic.TTF},
		{"GoMono", text.StyleRegular, gomono.TTF},
		{"GoMono", text.StyleBold, gomonobold.TTF},
		{"GoMono", text.StyleItalic, gomonoitalic.TTF},
		{"GoMono", text.StyleBoldItalic, gomonobolditalic.TTF},
	}
	for _, e := range embedded {
		// The embedded fonts are known good; a parse failure only leaves
		// the style to the family fallback.
		_ = fm.LoadFontFromData(e.family, e.style, e.data)
	}
	return fm
}

// LoadFontFromFile loads a TrueType/OpenType file into a family.
func (fm *FontManager) LoadFontFromFile(family string, style text.Style, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read font file %s: %w", path, err)
	}
	return fm.LoadFontFromData(family, style, data)
}

// LoadFontFromData parses font data into a family.
func (fm *FontManager) LoadFontFromData(family string, style text.Style, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse font data: %w", err)
	}

	fm.mu.Lock()
	defer fm.mu.Unlock()
	ff, ok := fm.families[family]
	if !ok {
		ff = NewFontFamily(family)
		fm.families[family] = ff
	}
	ff.fonts[style] = f
	return nil
}

// Family returns the named family, or nil.
func (fm *FontManager) Family(name string) *FontFamily {
	fm.mu.RLock()
	defer fm.mu.RUnlock()
	return fm.families[name]
}

// ListFamilies returns the loaded family names, sorted.
func (fm *FontManager) ListFamilies() []string {
	fm.mu.RLock()
	defer fm.mu.RUnlock()
	names := make([]string, 0, len(fm.families))
	for name := range fm.families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewFontSet builds faces of the given point size for every style of family.
// Unknown families fall back to DefaultFamily.
func (fm *FontManager) NewFontSet(family string, size float64) (*FontSet, error) {
	if size <= 0 {
		return nil, fmt.Errorf("font size must be positive, got %v", size)
	}
	ff := fm.Family(family)
	if ff == nil {
		ff = fm.Family(DefaultFamily)
	}
	if ff == nil {
		return nil, fmt.Errorf("font family %q not loaded", family)
	}

	fs := &FontSet{faces: make(map[text.Style]font.Face, len(text.Styles))}
	for _, style := range text.Styles {
		f := ff.Font(style)
		if f == nil {
			return nil, fmt.Errorf("font family %q has no fonts", ff.Name())
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s face: %w", style, err)
		}
		fs.faces[style] = face
	}
	return fs, nil
}

// FontSet implements Fonts with one x/image face per style.
// Faces are not safe for concurrent use, and neither is a FontSet.
type FontSet struct {
	faces map[text.Style]font.Face
}

var _ Fonts = (*FontSet)(nil)

func (fs *FontSet) face(style text.Style) font.Face {
	if f, ok := fs.faces[style]; ok {
		return f
	}
	return fs.faces[text.StyleRegular]
}

// Measure implements Fonts.
func (fs *FontSet) Measure(style text.Style, s string) (int, int) {
	face := fs.face(style)
	return font.MeasureString(face, s).Ceil(), face.Metrics().Height.Ceil()
}

// Ascent implements Fonts.
func (fs *FontSet) Ascent(style text.Style) int {
	return fs.face(style).Metrics().Ascent.Ceil()
}

// Draw implements Fonts.
func (fs *FontSet) Draw(dst draw.Image, style text.Style, dot image.Point, c color.Color, s string) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: fs.face(style),
		Dot:  fixed.P(dot.X, dot.Y),
	}
	d.DrawString(s)
}

// Close releases the faces.
func (fs *FontSet) Close() error {
	for _, f := range fs.faces {
		_ = f.Close()
	}
	return nil
}
