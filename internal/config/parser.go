package config

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
)

// Format names a configuration syntax.
type Format string

// Configuration formats.
const (
	FormatLua  Format = "lua"
	FormatYAML Format = "yaml"
)

// Parser parses bar configuration files, detecting whether they are Lua or
// YAML.
type Parser struct {
	yamlParser *YAMLConfigParser
	luaParser  *LuaConfigParser
}

// NewParser creates a Parser that handles both formats.
func NewParser() (*Parser, error) {
	luaParser, err := NewLuaConfigParser()
	if err != nil {
		return nil, fmt.Errorf("failed to create Lua parser: %w", err)
	}

	return &Parser{
		yamlParser: NewYAMLConfigParser(),
		luaParser:  luaParser,
	}, nil
}

// ParseFile reads and parses a configuration file.
func (p *Parser) ParseFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return p.Parse(content)
}

// Parse parses configuration content, detecting the format.
func (p *Parser) Parse(content []byte) (*Config, error) {
	return p.parseFormat(content, DetectFormat(content))
}

// luaConfigPattern matches an assignment to bar.config at the start of a
// line, which marks a Lua configuration.
var luaConfigPattern = regexp.MustCompile(`(?m)^\s*bar\.config\s*=`)

// DetectFormat reports FormatLua when content assigns bar.config and
// FormatYAML otherwise.
func DetectFormat(content []byte) Format {
	if luaConfigPattern.Match(content) {
		return FormatLua
	}
	return FormatYAML
}

// ParseFromFS reads and parses a configuration file from fsys.
func (p *Parser) ParseFromFS(fsys fs.FS, path string) (*Config, error) {
	content, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from FS %s: %w", path, err)
	}

	return p.Parse(content)
}

// ParseReader parses configuration from r in the given format.
func (p *Parser) ParseReader(r io.Reader, format Format) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return p.parseFormat(content, format)
}

func (p *Parser) parseFormat(content []byte, format Format) (*Config, error) {
	switch format {
	case FormatLua:
		return p.luaParser.Parse(content)
	case FormatYAML:
		return p.yamlParser.Parse(content)
	default:
		return nil, fmt.Errorf("unknown format: %s (expected 'lua' or 'yaml')", format)
	}
}

// Close releases resources associated with the parser.
func (p *Parser) Close() error {
	if p.luaParser != nil {
		return p.luaParser.Close()
	}
	return nil
}
