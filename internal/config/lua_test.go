package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/opd-ai/go-dockbar/internal/bar"
	"github.com/opd-ai/go-dockbar/internal/text"
)

func newLuaParser(t *testing.T) *LuaConfigParser {
	t.Helper()
	p, err := NewLuaConfigParser()
	if err != nil {
		t.Fatalf("NewLuaConfigParser failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestLuaConfigParserEmptyConfig(t *testing.T) {
	p := newLuaParser(t)

	cfg, err := p.Parse([]byte("bar.config = {}"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	def := DefaultBarConfig()
	if cfg.Bar.Font != def.Font || cfg.Bar.FontSize != def.FontSize {
		t.Errorf("expected defaults, got %+v", cfg.Bar)
	}
	if len(cfg.Widgets) != 0 {
		t.Errorf("expected no widgets, got %d", len(cfg.Widgets))
	}
}

func TestLuaConfigParserComputedValues(t *testing.T) {
	p := newLuaParser(t)

	content := `
local gap = 4
local function widget(kind, align)
    return { type = kind, align = align, padding = { gap * 2, gap } }
end
bar.config = { height = 16 + gap, offset = { x = gap, y = 0 } }
bar.widgets = {}
for _, kind in ipairs({ "pager", "title" }) do
    table.insert(bar.widgets, widget(kind, "left"))
end
bar.widgets[#bar.widgets + 1] = widget("clock", "right")
`
	cfg, err := p.Parse([]byte(content))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Bar.Height != 20 || cfg.Bar.OffsetX != 4 {
		t.Errorf("bar = %+v", cfg.Bar)
	}
	if len(cfg.Widgets) != 3 {
		t.Fatalf("got %d widgets, want 3", len(cfg.Widgets))
	}
	want := text.NewPadding(8, 8, 4, 4)
	for i, w := range cfg.Widgets {
		if w.Attributes.Padding != want {
			t.Errorf("widget %d padding = %+v, want %+v", i, w.Attributes.Padding, want)
		}
	}
	if cfg.Widgets[2].Align != bar.AlignRight {
		t.Errorf("clock align = %s", cfg.Widgets[2].Align)
	}
}

func TestLuaConfigParserPagerStyles(t *testing.T) {
	p := newLuaParser(t)

	content := `bar.config = { foreground = "white" }
bar.widgets = {
    {
        type = "pager",
        active = { background = "#ff0000", font_style = "bold" },
        non_empty = { foreground = "gray" },
    },
}`
	cfg, err := p.Parse([]byte(content))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	pager := cfg.Widgets[0]
	if pager.Active.Background != text.MustParseColor("#ff0000") || pager.Active.Style != text.StyleBold {
		t.Errorf("active = %+v", pager.Active)
	}
	if pager.Active.Foreground != text.MustParseColor("white") {
		t.Errorf("active foreground not inherited: %+v", pager.Active)
	}
	if pager.NonEmpty.Foreground != text.MustParseColor("gray") {
		t.Errorf("non_empty = %+v", pager.NonEmpty)
	}
	_, inactive, _ := cfg.Bar.DefaultPagerAttributes()
	if pager.Inactive != inactive {
		t.Errorf("inactive = %+v, want default %+v", pager.Inactive, inactive)
	}
}

func TestLuaConfigParserErrorHandling(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"syntax error", "bar.config = {", "compile"},
		{"runtime error", "bar.config = {}\nerror('boom')", "execute"},
		{"config not a table", "bar.config = 5", "bar.config is not a table"},
		{"bar replaced", "bar = 1\nbar.config = {}", "execute"},
		{"widgets map", "bar.config = {}\nbar.widgets = { clock = {} }", "must be a list"},
		{"mixed table", "bar.config = {}\nbar.widgets = { {type='text'}, x = 1 }", "mixes"},
		{"function value", "bar.config = { font = print }", "unsupported"},
		{"unknown key", "bar.config = { colour = 'red' }", "colour"},
		{"bad color", "bar.config = { background = 'nope' }", "bar.background"},
		{"runaway loop", "bar.config = {}\nwhile true do end", "execute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newLuaParser(t)
			_, err := p.Parse([]byte(tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("error %q does not mention %q", err, tt.errText)
			}
		})
	}
}

func TestLuaConfigParserReuse(t *testing.T) {
	p := newLuaParser(t)

	if _, err := p.Parse([]byte(`bar.config = {}
bar.widgets = { { type = "text", text = "one" } }`)); err != nil {
		t.Fatalf("first Parse failed: %v", err)
	}
	cfg, err := p.Parse([]byte("bar.config = {}"))
	if err != nil {
		t.Fatalf("second Parse failed: %v", err)
	}
	if len(cfg.Widgets) != 0 {
		t.Errorf("widgets leaked from the previous run: %+v", cfg.Widgets)
	}
}

func TestLuaConfigParserOutput(t *testing.T) {
	var out bytes.Buffer
	p, err := NewLuaConfigParserWithOutput(&out)
	if err != nil {
		t.Fatalf("NewLuaConfigParserWithOutput failed: %v", err)
	}
	defer p.Close()

	if _, err := p.Parse([]byte("print('hello')\nbar.config = {}")); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !strings.Contains(out.String(), "hello") {
		t.Errorf("print output = %q", out.String())
	}
}
